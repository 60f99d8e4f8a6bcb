package form

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"estate_listing_v1/internal/model"
)

// MinDescriptionLength 描述最少字符数
const MinDescriptionLength = 20

// 字段名（同时作为表单字段名和错误 key）
const (
	FieldTitle         = "title"
	FieldCategory      = "category"
	FieldLocation      = "location"
	FieldContactNumber = "contact_number"
	FieldDescription   = "description"
	FieldRentAmount    = "rent_amount"
	FieldDepositAmount = "deposit_amount"
	FieldPrice         = "price"
	FieldImages        = "images"
)

// ==================== 错误集合 ====================

// ValidationErrors 字段名 -> 提示信息，每次校验整体重算
type ValidationErrors map[string]string

// Empty 没有任何错误
func (e ValidationErrors) Empty() bool {
	return len(e) == 0
}

// Has 指定字段是否有错误
func (e ValidationErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Fields 出错的字段名（排序）
func (e ValidationErrors) Fields() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Error 汇总信息，按字段名排序
func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, name := range e.Fields() {
		parts = append(parts, name+": "+e[name])
	}
	return strings.Join(parts, "; ")
}

func (e ValidationErrors) clone() ValidationErrors {
	out := make(ValidationErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ==================== 字段 ====================

// Fields 表单中的文本字段，金额保持原始输入，提交时才转换
type Fields struct {
	Title         string `field:"title" validate:"required"`
	Category      string `field:"category" validate:"required"`
	Location      string `field:"location" validate:"required"`
	ContactNumber string `field:"contact_number" validate:"required,phone10"`
	Description   string `field:"description" validate:"required,min=20"`

	// rent
	RentAmount    string `field:"rent_amount"`
	DepositAmount string `field:"deposit_amount"`
	// sell
	Price string `field:"price"`
}

// Trimmed 返回去除首尾空白后的副本
func (f Fields) Trimmed() Fields {
	return Fields{
		Title:         strings.TrimSpace(f.Title),
		Category:      strings.TrimSpace(f.Category),
		Location:      strings.TrimSpace(f.Location),
		ContactNumber: strings.TrimSpace(f.ContactNumber),
		Description:   strings.TrimSpace(f.Description),
		RentAmount:    strings.TrimSpace(f.RentAmount),
		DepositAmount: strings.TrimSpace(f.DepositAmount),
		Price:         strings.TrimSpace(f.Price),
	}
}

var fieldLabels = map[string]string{
	FieldTitle:         "Title",
	FieldCategory:      "Category",
	FieldLocation:      "Location",
	FieldContactNumber: "Contact number",
	FieldDescription:   "Description",
	FieldRentAmount:    "Rent amount",
	FieldDepositAmount: "Deposit amount",
	FieldPrice:         "Price",
}

// 统一提示文案
var (
	MsgContactNumber = "Contact number must be exactly 10 digits"
	MsgDescription   = fmt.Sprintf("Description must be at least %d characters", MinDescriptionLength)
	MsgDeposit       = "Deposit amount must be a number of 0 or more"
	MsgImages        = "Add at least one image"
)

// 金额规则：格式 + 小数位 + 整数位，超出列精度的值在这里拒绝
var (
	rentAmountRule = amountRule("positive_amount", model.RentAmountDigits)
	depositRule    = amountRule("nonneg_amount", model.RentAmountDigits)
	priceRule      = amountRule("positive_amount", model.PriceDigits)
)

func amountRule(sign string, digits int) string {
	return fmt.Sprintf("%s,amount_scale=%d,amount_int_digits=%d", sign, model.AmountScale, digits-model.AmountScale)
}

// ==================== validator 初始化 ====================

var (
	phonePattern = regexp.MustCompile(`^\d{10}$`)
	validate     = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 错误里使用 field 标签作为字段名
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name := sf.Tag.Get("field")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})

	mustRegister(v, "phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "positive_amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	mustRegister(v, "nonneg_amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	// 1200.500 可以，1200.505 不行
	mustRegister(v, "amount_scale", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		scale, err := strconv.ParseInt(fl.Param(), 10, 32)
		if err != nil {
			return false
		}
		return d.Truncate(int32(scale)).Equal(d)
	})
	mustRegister(v, "amount_int_digits", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		digits, err := strconv.ParseInt(fl.Param(), 10, 32)
		if err != nil {
			return false
		}
		return d.Abs().LessThan(decimal.New(1, int32(digits)))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// ==================== 校验入口 ====================

// Validate 校验草稿，纯函数，不修改 draft
func Validate(d *Draft, pendingImageCount int) ValidationErrors {
	errs := ValidateFields(d.Type(), d.Fields())
	if pendingImageCount < 1 {
		errs[FieldImages] = MsgImages
	}
	return errs
}

// ValidateFields 校验文本字段（不含图片），服务端复用
func ValidateFields(t model.ListingType, fields Fields) ValidationErrors {
	f := fields.Trimmed()
	errs := ValidationErrors{}

	if err := validate.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			// 只有传入非结构体时才会走到这里
			panic(err)
		}
		for _, fe := range fieldErrs {
			errs[fe.Field()] = messageFor(fe.Field(), fe.Tag())
		}
	}

	switch t {
	case model.ListingTypeRent:
		checkVar(errs, FieldRentAmount, f.RentAmount, "required,"+rentAmountRule)
		if f.DepositAmount != "" {
			checkVar(errs, FieldDepositAmount, f.DepositAmount, depositRule)
		}
	case model.ListingTypeSell:
		checkVar(errs, FieldPrice, f.Price, "required,"+priceRule)
	default:
		errs["listing_type"] = "Listing type must be rent or sell"
	}

	return errs
}

func checkVar(errs ValidationErrors, field, value, tag string) {
	if err := validate.Var(value, tag); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			errs[field] = messageFor(field, fieldErrs[0].Tag())
			return
		}
		errs[field] = messageFor(field, "")
	}
}

func messageFor(field, tag string) string {
	label := fieldLabels[field]
	if label == "" {
		label = field
	}
	switch tag {
	case "amount_scale":
		return fmt.Sprintf("%s can have at most %d decimal places", label, model.AmountScale)
	case "amount_int_digits":
		return label + " is too large"
	}

	switch field {
	case FieldContactNumber:
		if tag == "required" {
			return "Contact number is required"
		}
		return MsgContactNumber
	case FieldDescription:
		return MsgDescription
	case FieldDepositAmount:
		return MsgDeposit
	}

	switch tag {
	case "required":
		return label + " is required"
	case "positive_amount":
		return label + " must be a number greater than 0"
	default:
		return label + " is invalid"
	}
}
