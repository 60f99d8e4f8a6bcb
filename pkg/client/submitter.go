package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"estate_listing_v1/internal/form"
	"estate_listing_v1/internal/model"
)

// ==================== 状态 ====================

// State 提交状态
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

// 提交按钮文案
const (
	LabelSubmit     = "Add Property"
	LabelSubmitting = "Submitting..."
)

// ValidationFailedError 本地校验未通过
type ValidationFailedError struct {
	Fields form.ValidationErrors
}

func (e *ValidationFailedError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

// Navigator 提交成功后的页面跳转
type Navigator interface {
	NavigateToFeed(t model.ListingType)
}

// NavigatorFunc 函数形式的 Navigator
type NavigatorFunc func(t model.ListingType)

func (f NavigatorFunc) NavigateToFeed(t model.ListingType) { f(t) }

// Control 提交按钮状态
type Control struct {
	Enabled bool
	Label   string
}

// ==================== Submitter ====================

// Submitter 草稿提交协调器，同一时刻只允许一次提交
type Submitter struct {
	client  *Client
	session SessionProvider
	nav     Navigator

	mu    sync.Mutex
	state State
}

func NewSubmitter(client *Client, session SessionProvider, nav Navigator) *Submitter {
	return &Submitter{client: client, session: session, nav: nav}
}

// State 当前状态
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Submitter) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// SubmitControl 提交按钮是否可用及文案
func (s *Submitter) SubmitControl(d *form.Draft) Control {
	if s.State() != StateIdle {
		return Control{Enabled: false, Label: LabelSubmitting}
	}
	if !d.CanSubmit() {
		return Control{Enabled: false, Label: form.MsgImages}
	}
	return Control{Enabled: true, Label: LabelSubmit}
}

// Submit 校验并提交草稿
// 失败时草稿保持不变；成功后跳转列表页并清空草稿
func (s *Submitter) Submit(ctx context.Context, d *form.Draft) (*CreateListingResult, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	s.state = StateValidating
	s.mu.Unlock()

	defer s.setState(StateIdle)

	if errs := d.Validate(); !errs.Empty() {
		return nil, &ValidationFailedError{Fields: errs}
	}

	token, err := s.session.Token(ctx)
	if err != nil || token == "" {
		return nil, ErrUnauthenticated
	}

	s.setState(StateSubmitting)

	payload := BuildPayload(d)
	result, err := s.client.CreateListing(ctx, token, payload)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, errors.Join(ErrUnauthenticated, err)
		}
		return nil, err
	}

	listingType := d.Type()
	d.Reset()
	if s.nav != nil {
		s.nav.NavigateToFeed(listingType)
	}
	return result, nil
}
