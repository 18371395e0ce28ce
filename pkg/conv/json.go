package conv

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// FlexString 是兼容数字的字符串：原始数据文件里的 id 是整数，统一转为十进制字符串。
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("conv: id must be string or number: %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*s = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*s = FlexString(n.String())
	return nil
}

// Strings 把 []FlexString 转为 []string。
func Strings(in []FlexString) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

var flexTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// FlexTime 兼容 RFC3339 与不带时区的 ISO 时间（按 UTC 解释）。
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("conv: timestamp must be a string: %w", err)
	}
	if str == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(str)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTime 依次尝试支持的时间格式。
func ParseTime(s string) (time.Time, error) {
	for _, layout := range flexTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("conv: unsupported timestamp %q", s)
}
