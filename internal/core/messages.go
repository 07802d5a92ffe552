package core

import "errors"

var userMessages = []struct {
	err error
	msg string
}{
	{ErrAmountTitleRequired, "مبلغ و عنوان الزامی است"},
	{ErrNegativeAmount, "مبلغ نامعتبر است"},
	{ErrSourceAccountRequired, "حساب مبدا را انتخاب کنید"},
	{ErrTargetAccountRequired, "حساب مقصد را انتخاب کنید"},
	{ErrSameAccount, "مبدا و مقصد نمی‌تواند یکی باشد"},
	{ErrAccountNotFound, "حساب یافت نشد"},
	{ErrLastAccount, "حداقل یک حساب لازم است"},
	{ErrEmptyAccountName, "نام حساب الزامی است"},
	{ErrInvalidAccountType, "نوع حساب نامعتبر است"},
	{ErrInvalidType, "نوع تراکنش نامعتبر است"},
}

// UserMessage returns the notification text shown for a validation error, or
// "" when err is not a known validation error.
func UserMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return ""
}

// IsValidation reports whether err is a user-input validation failure.
func IsValidation(err error) bool {
	return UserMessage(err) != ""
}
