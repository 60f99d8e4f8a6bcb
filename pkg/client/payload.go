package client

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"estate_listing_v1/internal/form"
	"estate_listing_v1/internal/model"
)

// Payload multipart 请求内容
type Payload struct {
	Type   model.ListingType
	Fields map[string]string
	Images []form.PendingImage
}

// BuildPayload 由草稿构造请求，金额在此时统一转换为十进制字符串
// 无法解析的金额原样发送，由服务端返回 400
func BuildPayload(d *form.Draft) *Payload {
	f := d.Fields().Trimmed()

	fields := map[string]string{
		form.FieldTitle:         f.Title,
		form.FieldCategory:      f.Category,
		form.FieldLocation:      f.Location,
		form.FieldContactNumber: f.ContactNumber,
		form.FieldDescription:   f.Description,
		"is_active":             strconv.FormatBool(d.IsActive()),
	}

	switch d.Type() {
	case model.ListingTypeRent:
		fields[form.FieldRentAmount] = coerceAmount(f.RentAmount)
		if f.DepositAmount != "" {
			fields[form.FieldDepositAmount] = coerceAmount(f.DepositAmount)
		}
	case model.ListingTypeSell:
		fields[form.FieldPrice] = coerceAmount(f.Price)
	}

	tags := d.Tags()
	if tags == nil {
		tags = []string{}
	}
	raw, _ := json.Marshal(tags)
	fields["tags"] = string(raw)

	return &Payload{
		Type:   d.Type(),
		Fields: fields,
		Images: d.Images(),
	}
}

func coerceAmount(s string) string {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}
