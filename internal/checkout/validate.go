package checkout

import (
	"errors"
	"sort"
	"strings"

	"checkout-service/internal/domain"
	"checkout-service/internal/validator"
)

var ErrValidation = errors.New("checkout: shipping information invalid")

// NoticeInvalidForm is shown when an order is submitted with an invalid form.
const NoticeInvalidForm = "Vui lòng kiểm tra lại thông tin!"

// fieldMessages maps a shipping field and failed rule to the message shown
// next to that field.
var fieldMessages = map[string]map[string]string{
	"fullName": {"nonblank": "Vui lòng nhập họ tên"},
	"phone":    {"nonblank": "Vui lòng nhập số điện thoại", "vnphone": "Số điện thoại không hợp lệ"},
	"email":    {"nonblank": "Vui lòng nhập email", "simpleemail": "Email không hợp lệ"},
	"address":  {"nonblank": "Vui lòng nhập địa chỉ chi tiết"},
	"city":     {"nonblank": "Vui lòng chọn tỉnh/thành phố"},
	"district": {"nonblank": "Vui lòng chọn quận/huyện"},
	"ward":     {"nonblank": "Vui lòng chọn phường/xã"},
}

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return ErrValidation.Error() + ": " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ValidateShipping checks info and returns a message per invalid field.
// The map is empty when info is valid.
func ValidateShipping(info domain.ShippingInfo) map[string]string {
	out := map[string]string{}
	fields, err := validator.Fields(info)
	if err != nil {
		// Only reachable if the rules themselves are misconfigured.
		out["form"] = err.Error()
		return out
	}
	for name, fe := range fields {
		msg, ok := fieldMessages[name][fe.Tag]
		if !ok {
			msg = fieldMessages[name]["nonblank"]
		}
		out[name] = msg
	}
	return out
}
