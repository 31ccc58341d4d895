package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// 错误信息映射
var validationMessages = map[string]string{
	"required": "不能为空",
	"min":      "不能小于%v",
	"max":      "不能大于%v",
	"oneof":    "必须是[%v]中的一个",
	"gte":      "必须大于等于%v",
	"lte":      "必须小于等于%v",
}

// FormatValidationError 将参数校验错误转换为可读信息，只返回第一个错误
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "参数格式错误"
	}

	first := errs[0]
	msg := validationMessages[first.Tag()]
	if msg == "" {
		msg = "验证失败"
	}
	if first.Param() != "" {
		return first.Field() + fmt.Sprintf(msg, first.Param())
	}
	return first.Field() + msg
}
