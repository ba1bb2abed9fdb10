package checkout

import (
	"context"
	"fmt"

	"checkout-service/internal/domain"
)

const (
	NoticeEditCancelled = "Đã hủy chỉnh sửa"
	NoticeAddressSaved  = "Đã lưu thông tin giao hàng"
)

// StartEditing opens the shipping form, remembering the current values.
func (s *Service) StartEditing(ctx context.Context, id string) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		if sess.State != domain.StateViewing {
			return ErrInvalidTransition
		}
		sess.Snapshot = &domain.EditSnapshot{
			Shipping:   sess.Shipping,
			ProvinceID: sess.ProvinceID,
			DistrictID: sess.DistrictID,
			WardID:     sess.WardID,
		}
		sess.State = domain.StateEditing
		sess.Seq.Next(seqAddress)
		return nil
	})
}

// CancelEditing discards edits and restores the values from StartEditing.
func (s *Service) CancelEditing(ctx context.Context, id string) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		if sess.State != domain.StateEditing {
			return ErrInvalidTransition
		}
		if snap := sess.Snapshot; snap != nil {
			sess.Shipping = snap.Shipping
			sess.ProvinceID = snap.ProvinceID
			sess.DistrictID = snap.DistrictID
			sess.WardID = snap.WardID
		}
		sess.Snapshot = nil
		sess.State = domain.StateViewing
		sess.Errors = nil
		sess.Seq.Next(seqAddress)
		sess.Notice = NoticeEditCancelled
		return nil
	})
}

// SaveAddress closes the form if it validates. The address no longer
// corresponds to a saved one, so the selection marker is dropped. On a
// validation failure the session keeps the field errors and stays in editing.
func (s *Service) SaveAddress(ctx context.Context, id string) (*domain.Session, error) {
	var verr *ValidationError
	sess, err := s.mutate(ctx, id, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		if sess.State != domain.StateEditing {
			return ErrInvalidTransition
		}
		fields := ValidateShipping(sess.Shipping)
		sess.Errors = fields
		if len(fields) > 0 {
			verr = &ValidationError{Fields: fields}
			return nil
		}
		sess.State = domain.StateViewing
		sess.Snapshot = nil
		sess.SelectedAddressID = nil
		sess.Errors = nil
		sess.Seq.Next(seqAddress)
		sess.Notice = NoticeAddressSaved
		return nil
	})
	if err != nil {
		return nil, err
	}
	if verr != nil {
		return sess, verr
	}
	return sess, nil
}

// UpdateShippingField sets one form field while editing. The location fields
// take catalog ids and clear the levels below them; an id that is not a child
// of the current parent leaves the field blank.
func (s *Service) UpdateShippingField(ctx context.Context, id, field, value string) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		if sess.State != domain.StateEditing {
			return ErrInvalidTransition
		}
		info := &sess.Shipping
		switch field {
		case "city":
			p, ok := s.catalog.Province(value)
			sess.ProvinceID, info.City = "", ""
			if ok {
				sess.ProvinceID, info.City = p.ID, p.Name
			}
			sess.DistrictID, info.District = "", ""
			sess.WardID, info.Ward = "", ""
		case "district":
			d, ok := s.catalog.District(value)
			sess.DistrictID, info.District = "", ""
			if ok && d.ParentID == sess.ProvinceID {
				sess.DistrictID, info.District = d.ID, d.Name
			}
			sess.WardID, info.Ward = "", ""
		case "ward":
			w, ok := s.catalog.Ward(value)
			sess.WardID, info.Ward = "", ""
			if ok && w.ParentID == sess.DistrictID {
				sess.WardID, info.Ward = w.ID, w.Name
			}
		case "fullName":
			info.FullName = value
		case "phone":
			info.Phone = value
		case "email":
			info.Email = value
		case "address":
			info.Address = value
		case "note":
			info.Note = value
		default:
			return fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		sess.Seq.Next(seqAddress)
		return nil
	})
}

func (s *Service) SetShippingMethod(ctx context.Context, id string, method domain.ShippingMethod) (*domain.Session, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: shipping %q", ErrInvalidMethod, method)
	}
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		sess.ShippingMethod = method
		return nil
	})
}

func (s *Service) SetPaymentMethod(ctx context.Context, id string, method domain.PaymentMethod) (*domain.Session, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: payment %q", ErrInvalidMethod, method)
	}
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		sess.PaymentMethod = method
		return nil
	})
}

// Validate checks the current form and records the field errors on the session.
func (s *Service) Validate(ctx context.Context, id string) (*domain.Session, bool, error) {
	sess, err := s.mutate(ctx, id, func(sess *domain.Session) error {
		if sess.State == domain.StateCompleted {
			return ErrCompleted
		}
		sess.Errors = ValidateShipping(sess.Shipping)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return sess, len(sess.Errors) == 0, nil
}
