package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatWhatsApp(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"local prefix", "08123456789", "+628123456789"},
		{"already canonical", "+628123456789", "+628123456789"},
		{"country prefix without plus", "628123456789", "+628123456789"},
		{"spaces and dashes", "0812-3456-789", "+628123456789"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatWhatsApp(tc.in))
		})
	}
}

func TestFormatWhatsApp_Idempotent(t *testing.T) {
	inputs := []string{"08123456789", "+628123456789", "62 812 3456 789", "0812-3456-7890"}
	for _, in := range inputs {
		once := FormatWhatsApp(in)
		assert.Equal(t, once, FormatWhatsApp(once), "повторное форматирование не должно менять результат: %q", in)
	}
}

func TestValidateWhatsApp(t *testing.T) {
	assert.True(t, ValidateWhatsApp("08123456789"))
	assert.True(t, ValidateWhatsApp("+628123456789"))
	assert.True(t, ValidateWhatsApp("628123456789"))

	// Слишком короткий
	assert.False(t, ValidateWhatsApp("0812345"))
	// Слишком длинный
	assert.False(t, ValidateWhatsApp("081234567890123"))
	// Чужой префикс
	assert.False(t, ValidateWhatsApp("79991234567"))
	assert.False(t, ValidateWhatsApp(""))
}
