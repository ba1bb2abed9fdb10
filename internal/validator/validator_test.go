package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-service/internal/domain"
)

func validInfo() domain.ShippingInfo {
	return domain.ShippingInfo{
		FullName: "Nguyễn Văn A",
		Phone:    "0901 234 567",
		Email:    "a@example.com",
		Address:  "12 Lê Lợi",
		City:     "Thành phố Hồ Chí Minh",
		District: "Quận 1",
		Ward:     "Phường Bến Nghé",
	}
}

func TestFieldsAcceptsCompleteForm(t *testing.T) {
	fields, err := Fields(validInfo())
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestFieldsReportsFirstRulePerField(t *testing.T) {
	info := validInfo()
	info.FullName = "   "
	info.Phone = ""
	info.Email = "not-an-email"
	info.Ward = ""

	fields, err := Fields(info)
	require.NoError(t, err)
	assert.Equal(t, map[string]FieldError{
		"fullName": {Field: "fullName", Tag: "nonblank"},
		"phone":    {Field: "phone", Tag: "nonblank"},
		"email":    {Field: "email", Tag: "simpleemail"},
		"ward":     {Field: "ward", Tag: "nonblank"},
	}, fields)
}

func TestIsPhone(t *testing.T) {
	assert.True(t, IsPhone("0901234567"))
	assert.True(t, IsPhone(" 090 123\t4567 "))
	assert.False(t, IsPhone("090123456"))
	assert.False(t, IsPhone("09012345678"))
	assert.False(t, IsPhone("090-123-4567"))
	assert.False(t, IsPhone("+84901234567"))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("a@b.co"))
	assert.False(t, IsEmail("a@b"))
	assert.False(t, IsEmail("a b@c.d"))
	assert.False(t, IsEmail("@b.c"))
}
