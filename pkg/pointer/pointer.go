// Package pointer 实现指针文件的编解码
//
// 指针文件是一段小的文本记录，在 git 历史里替代真实的大文件内容。
// 格式与 git-lfs 兼容：
//
//	version https://git-lfs.github.com/spec/v1
//	oid sha256:4d7a214614ab2935c943f9e0ff69d22eadbb8f32b1258daaa5e2ca24d17e2393
//	size 12345
package pointer

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lfsvault/pkg/types"
)

const (
	// Version 是指针文件的版本行 (固定 URI，保证跨实现兼容)
	Version = "https://git-lfs.github.com/spec/v1"

	// MaxSize 指针文件的最大字节数 (超过即认定不是指针)
	MaxSize = 1024
)

// ErrFormat 是所有解码失败的哨兵错误
// 调用方据此把“看起来像指针但解不出来”的文件当作普通内容处理，绝不 panic。
var ErrFormat = errors.New("invalid pointer format")

// Pointer 代表一条已解码的指针记录
// 它只描述内容身份 (oid + size)，与文件路径无关。
type Pointer struct {
	Oid  types.OID
	Size int64
}

// Encode 输出规范字节形式
// version 行在最前，其余字段按 key 排序 (oid < size)，逐行 "<key> <value>\n"。
// 相同输入必须产生相同字节，diff 稳定性和跨实现互通都依赖这一点。
func (p *Pointer) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "version %s\n", Version)
	fmt.Fprintf(&buf, "oid sha256:%s\n", p.Oid)
	fmt.Fprintf(&buf, "size %d\n", p.Size)
	return buf.Bytes()
}

func (p *Pointer) String() string { return string(p.Encode()) }

// Decode 严格解析指针字节
// 失败条件：
//   - 总长度超过 MaxSize
//   - version 行缺失、不在第一行、或 URI 不认识
//   - oid/size 缺失或格式错误
//   - size 之后的扩展 key 未按字典序排列，或有重复 key
func Decode(data []byte) (*Pointer, error) {
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d byte cap", ErrFormat, len(data), MaxSize)
	}

	var (
		oid      types.OID
		size     int64 = -1
		seenVer  bool
		lastKey  string
		seenKeys = map[string]bool{}
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, " ")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("%w: malformed line %q", ErrFormat, line)
		}

		// version 必须是第一条非空行
		if first {
			if key != "version" {
				return nil, fmt.Errorf("%w: first line must be version", ErrFormat)
			}
			if value != Version {
				return nil, fmt.Errorf("%w: unrecognized version %q", ErrFormat, value)
			}
			seenVer = true
			first = false
			continue
		}

		if seenKeys[key] || key == "version" {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrFormat, key)
		}
		seenKeys[key] = true

		// version 之后的所有 key 必须严格字典序递增 (oid < size < 扩展 key)
		if key <= lastKey {
			return nil, fmt.Errorf("%w: key %q out of order", ErrFormat, key)
		}
		lastKey = key

		switch key {
		case "oid":
			hexPart, found := strings.CutPrefix(value, "sha256:")
			if !found {
				return nil, fmt.Errorf("%w: oid %q is not sha256", ErrFormat, value)
			}
			o := types.OID(hexPart)
			if !o.IsValid() {
				return nil, fmt.Errorf("%w: invalid oid %q", ErrFormat, value)
			}
			oid = o
		case "size":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: invalid size %q", ErrFormat, value)
			}
			size = n
		default:
			// 扩展 key：排序/去重检查之外不做解析
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if !seenVer {
		return nil, fmt.Errorf("%w: missing version", ErrFormat)
	}
	if oid.IsZero() {
		return nil, fmt.Errorf("%w: missing oid", ErrFormat)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: missing size", ErrFormat)
	}

	return &Pointer{Oid: oid, Size: size}, nil
}

// DecodeFile 尝试把磁盘文件解析为指针
// 只读取前 MaxSize+1 字节：解指针不需要读完一个 10GB 的大文件。
func DecodeFile(path string) (*Pointer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// IsPointerFile 判断一个文件是不是合法指针 (解码成功即是)
func IsPointerFile(path string) bool {
	p, err := DecodeFile(path)
	return err == nil && p != nil
}

// FromReader 流式读取内容，计算 sha256 和字节数，生成指针
// tee 不为 nil 时，读到的字节会同步写入 tee (clean 命令借此边哈希边填缓存)。
func FromReader(r io.Reader, tee io.Writer) (*Pointer, error) {
	hasher := sha256.New()
	w := io.Writer(hasher)
	if tee != nil {
		w = io.MultiWriter(hasher, tee)
	}

	size, err := io.Copy(w, r)
	if err != nil {
		return nil, err
	}

	return &Pointer{
		Oid:  types.OID(hex.EncodeToString(hasher.Sum(nil))),
		Size: size,
	}, nil
}

// FromFile 对磁盘文件流式计算指针
func FromFile(path string) (*Pointer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FromReader(f, nil)
}
