// pkg/types/common.go
package types

// OID 代表一个对象的内容标识 (SHA256 Hex String，不含 "sha256:" 前缀)
// 这是一个“值对象”，应当是不可变的。
type OID string

func (o OID) String() string { return string(o) }

// 验证 OID 合法性
// 注意：规范形式是小写，但解析时大写也接受 (兼容其他实现写出的指针)
func (o OID) IsZero() bool { return o == "" }
func (o OID) IsValid() bool {
	if len(o) != 64 {
		return false
	}
	for i := 0; i < len(o); i++ {
		c := o[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// ShardPrefix 返回用于目录/Key 分片的前 2 个字符
// Example: "aabbcc..." -> "aa"
func (o OID) ShardPrefix() string {
	if len(o) < 2 {
		return string(o)
	}
	return string(o[:2])
}
