package form

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"estate_listing_v1/internal/model"
)

// PendingImage 待上传图片（原始二进制 + 预览引用）
type PendingImage struct {
	Name        string
	ContentType string
	Data        []byte
	PreviewRef  string
}

// Draft 发布表单的草稿状态，提交前不落库
// 每个表单实例持有自己的 Draft，非并发安全
type Draft struct {
	listingType model.ListingType
	fields      Fields
	tags        []string
	images      []PendingImage
	isActive    bool
	errors      ValidationErrors
	previewSeq  int
}

// NewDraft 创建空草稿
func NewDraft(t model.ListingType) *Draft {
	if !t.Valid() {
		t = model.ListingTypeRent
	}
	return &Draft{
		listingType: t,
		isActive:    true,
		errors:      ValidationErrors{},
	}
}

// ==================== 读取 ====================

func (d *Draft) Type() model.ListingType { return d.listingType }
func (d *Draft) Fields() Fields          { return d.fields }
func (d *Draft) IsActive() bool          { return d.isActive }

// Tags 标签（按添加顺序）
func (d *Draft) Tags() []string {
	return append([]string(nil), d.tags...)
}

// Images 待上传图片（按添加顺序）
func (d *Draft) Images() []PendingImage {
	return append([]PendingImage(nil), d.images...)
}

// ImageCount 待上传图片数
func (d *Draft) ImageCount() int {
	return len(d.images)
}

// Errors 最近一次校验的错误
func (d *Draft) Errors() ValidationErrors {
	return d.errors.clone()
}

// ==================== 修改 ====================

// SetType 切换类型，清空另一种类型独有的字段
func (d *Draft) SetType(t model.ListingType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown listing type: %q", t)
	}
	if t == d.listingType {
		return nil
	}
	switch t {
	case model.ListingTypeSell:
		d.fields.RentAmount = ""
		d.fields.DepositAmount = ""
	case model.ListingTypeRent:
		d.fields.Price = ""
	}
	d.listingType = t
	return nil
}

// SetField 按字段名赋值
func (d *Draft) SetField(name, value string) error {
	switch name {
	case FieldTitle:
		d.fields.Title = value
	case FieldCategory:
		d.fields.Category = value
	case FieldLocation:
		d.fields.Location = value
	case FieldContactNumber:
		d.fields.ContactNumber = value
	case FieldDescription:
		d.fields.Description = value
	case FieldRentAmount:
		d.fields.RentAmount = value
	case FieldDepositAmount:
		d.fields.DepositAmount = value
	case FieldPrice:
		d.fields.Price = value
	default:
		return fmt.Errorf("unknown field: %q", name)
	}
	return nil
}

// SetActive 设置是否上架
func (d *Draft) SetActive(active bool) {
	d.isActive = active
}

// AddTag 添加标签，去重
func (d *Draft) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range d.tags {
		if t == tag {
			return false
		}
	}
	d.tags = append(d.tags, tag)
	return true
}

// RemoveTag 删除标签
func (d *Draft) RemoveTag(tag string) {
	for i, t := range d.tags {
		if t == tag {
			d.tags = append(d.tags[:i], d.tags[i+1:]...)
			return
		}
	}
}

// AddImage 追加待上传图片，返回预览引用
func (d *Draft) AddImage(name, contentType string, data []byte) string {
	d.previewSeq++
	ref := fmt.Sprintf("preview-%d", d.previewSeq)
	d.images = append(d.images, PendingImage{
		Name:        name,
		ContentType: contentType,
		Data:        data,
		PreviewRef:  ref,
	})
	return ref
}

// RemoveImage 按下标删除图片
func (d *Draft) RemoveImage(index int) error {
	if index < 0 || index >= len(d.images) {
		return fmt.Errorf("image index %d out of range", index)
	}
	d.images = append(d.images[:index], d.images[index+1:]...)
	return nil
}

// ==================== 校验 / 状态 ====================

// Validate 整体重算错误并保存
func (d *Draft) Validate() ValidationErrors {
	d.errors = Validate(d, len(d.images))
	return d.errors.clone()
}

// CanSubmit 没有图片时不可提交
func (d *Draft) CanSubmit() bool {
	return len(d.images) > 0
}

// DescriptionCounter 描述字数提示，如 "12/20+ characters"
func (d *Draft) DescriptionCounter() string {
	n := utf8.RuneCountInString(strings.TrimSpace(d.fields.Description))
	return fmt.Sprintf("%d/%d+ characters", n, MinDescriptionLength)
}

// Reset 丢弃草稿内容，保留当前类型
func (d *Draft) Reset() {
	t := d.listingType
	*d = *NewDraft(t)
}
