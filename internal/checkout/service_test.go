package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-service/internal/domain"
	"checkout-service/internal/events"
	"checkout-service/internal/location"
	sessionrepo "checkout-service/internal/repository/session"
)

const testCatalog = `[
  {"Id": "79", "Name": "Thành phố Hồ Chí Minh", "Districts": [
    {"Id": "760", "Name": "Quận 1", "Wards": [
      {"Id": "26734", "Name": "Phường Tân Định", "Level": "Phường"},
      {"Id": "26740", "Name": "Phường Bến Nghé", "Level": "Phường"}
    ]},
    {"Id": "770", "Name": "Quận 3", "Wards": [
      {"Id": "27139", "Name": "Phường Võ Thị Sáu", "Level": "Phường"}
    ]}
  ]},
  {"Id": "01", "Name": "Thành phố Hà Nội", "Districts": [
    {"Id": "001", "Name": "Quận Ba Đình", "Wards": [
      {"Id": "00001", "Name": "Phường Phúc Xá", "Level": "Phường"}
    ]}
  ]}
]`

const testOrderID = "a1b2c3d4-5e6f-4a00-9b00-1234567890ab"

var testNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type stubBackend struct {
	mu sync.Mutex

	addresses []domain.SavedAddress
	listErr   error
	listCalls int

	discounts map[string]*domain.DiscountDetail
	findErr   error
	findHook  func()

	created     *domain.CreatedOrder
	createErr   error
	createHook  func()
	orderReqs   []domain.OrderRequest
	payment     *domain.PaymentResponse
	paymentErr  error
	paymentReqs []domain.PaymentRequest
	removed     []string
	removeErr   error
}

func (b *stubBackend) List(ctx context.Context, token string) ([]domain.SavedAddress, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.addresses, nil
}

func (b *stubBackend) FindByCode(ctx context.Context, token, code string) (*domain.DiscountDetail, error) {
	if b.findHook != nil {
		b.findHook()
	}
	if b.findErr != nil {
		return nil, b.findErr
	}
	d, ok := b.discounts[code]
	if !ok {
		return nil, fmt.Errorf("discount %q: %w", code, domain.ErrNotFound)
	}
	return d, nil
}

func (b *stubBackend) Create(ctx context.Context, token string, req domain.OrderRequest) (*domain.CreatedOrder, error) {
	if b.createHook != nil {
		b.createHook()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderReqs = append(b.orderReqs, req)
	if b.createErr != nil {
		return nil, b.createErr
	}
	return b.created, nil
}

func (b *stubBackend) CreatePaymentURL(ctx context.Context, token string, req domain.PaymentRequest) (*domain.PaymentResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paymentReqs = append(b.paymentReqs, req)
	if b.paymentErr != nil {
		return nil, b.paymentErr
	}
	return b.payment, nil
}

func (b *stubBackend) RemoveItem(ctx context.Context, token, productID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	b.removed = append(b.removed, productID)
	return b.removeErr
}

type stubEvents struct {
	published []events.OrderPlaced
}

func (e *stubEvents) PublishOrderPlaced(ctx context.Context, evt events.OrderPlaced) error {
	e.published = append(e.published, evt)
	return nil
}

// userErr mimics a backend error carrying a message for the shopper.
type userErr struct{ msg string }

func (e userErr) Error() string       { return "backend rejected: " + e.msg }
func (e userErr) UserMessage() string { return e.msg }

func newTestService(t *testing.T, backend *stubBackend) (*Service, *stubEvents) {
	t.Helper()
	return newTestServiceWithStore(t, backend, sessionrepo.NewMemory(time.Hour))
}

func newTestServiceWithStore(t *testing.T, backend *stubBackend, store SessionStore) (*Service, *stubEvents) {
	t.Helper()
	catalog, err := location.Parse(strings.NewReader(testCatalog))
	require.NoError(t, err)

	if backend.created == nil {
		backend.created = &domain.CreatedOrder{ID: testOrderID, CreatedAt: testNow, Status: "PENDING", PaymentStatus: "UNPAID"}
	}
	if backend.payment == nil {
		backend.payment = &domain.PaymentResponse{Code: "00", Message: "success", PaymentURL: "https://pay.example/vnpay?token=1"}
	}

	evts := &stubEvents{}
	var n int
	svc, err := New(Deps{
		Sessions:  store,
		Catalog:   catalog,
		Addresses: backend,
		Discounts: backend,
		Orders:    backend,
		Payments:  backend,
		Cart:      backend,
		Events:    evts,
		Now:       func() time.Time { return testNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("sess-%d", n)
		},
	})
	require.NoError(t, err)
	return svc, evts
}

func member() domain.AuthContext {
	return domain.AuthContext{Name: "Nguyễn Văn An", Phone: "0911111111", Email: "an@example.com", Role: "USER", Token: "tok"}
}

func cartItems() []domain.CartItem {
	return []domain.CartItem{
		{ProductID: "p1", Name: "Áo thun", Price: 100000, Quantity: 1, InStock: true},
		{ProductID: "p2", Name: "Quần jean", Price: 50000, Quantity: 2, InStock: true},
	}
}

func savedAddresses() []domain.SavedAddress {
	return []domain.SavedAddress{
		{ID: 1, Name: "Văn phòng", Phone: "0922222222", Street: "1 Đội Cấn", Ward: "Phường Phúc Xá", Province: "Quận Ba Đình, Hà Nội"},
		{ID: 2, Name: "Nhà", Phone: "0901234567", Street: "12 Lê Lợi", Ward: "Phường Bến Nghé", Province: "Quận 1, Hồ Chí Minh", IsDefault: true},
	}
}

func percentCoupon(code string, percent int64) *domain.DiscountDetail {
	return &domain.DiscountDetail{
		Code:          code,
		DiscountType:  domain.DiscountPercent,
		DiscountValue: decimal.NewFromInt(percent),
		StartAt:       testNow.Add(-24 * time.Hour),
		EndAt:         testNow.Add(24 * time.Hour),
		Active:        true,
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}

func TestStartGuestSkipsAddressBook(t *testing.T) {
	backend := &stubBackend{addresses: savedAddresses()}
	svc, _ := newTestService(t, backend)

	sess, err := svc.Start(context.Background(), domain.AuthContext{}, StartInput{CartItems: cartItems()})
	require.NoError(t, err)

	assert.Equal(t, domain.StateViewing, sess.State)
	assert.True(t, sess.FromSharedCart)
	assert.Len(t, sess.Items, 2)
	assert.Equal(t, domain.ShippingStandard, sess.ShippingMethod)
	assert.Equal(t, domain.PaymentCOD, sess.PaymentMethod)
	assert.Empty(t, sess.SavedAddresses)
	assert.Zero(t, backend.listCalls)
}

func TestStartResolvesDefaultAddress(t *testing.T) {
	backend := &stubBackend{addresses: savedAddresses()}
	svc, _ := newTestService(t, backend)

	sess, err := svc.Start(context.Background(), member(), StartInput{CartItems: cartItems()})
	require.NoError(t, err)

	require.Len(t, sess.SavedAddresses, 2)
	require.NotNil(t, sess.SelectedAddressID)
	assert.Equal(t, int64(2), *sess.SelectedAddressID)
	assert.Equal(t, "79", sess.ProvinceID)
	assert.Equal(t, "760", sess.DistrictID)
	assert.Equal(t, "26740", sess.WardID)
	assert.Equal(t, domain.ShippingInfo{
		FullName: "Nhà",
		Phone:    "0901234567",
		Email:    "an@example.com",
		Address:  "12 Lê Lợi",
		City:     "Thành phố Hồ Chí Minh",
		District: "Quận 1",
		Ward:     "Phường Bến Nghé",
	}, sess.Shipping)
	assert.Equal(t, domain.StateViewing, sess.State)

	stored, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.User.Token)
}

func TestStartFallsBackToFirstAddress(t *testing.T) {
	list := savedAddresses()
	list[1].IsDefault = false
	backend := &stubBackend{addresses: list}
	svc, _ := newTestService(t, backend)

	sess, err := svc.Start(context.Background(), member(), StartInput{CartItems: cartItems()})
	require.NoError(t, err)
	require.NotNil(t, sess.SelectedAddressID)
	assert.Equal(t, int64(1), *sess.SelectedAddressID)
	assert.Equal(t, "01", sess.ProvinceID)
}

func TestStartAddressBookFailureLeavesNotice(t *testing.T) {
	backend := &stubBackend{listErr: errors.New("connection refused")}
	svc, _ := newTestService(t, backend)

	sess, err := svc.Start(context.Background(), member(), StartInput{CartItems: cartItems()})
	require.NoError(t, err)
	assert.Equal(t, NoticeAddressesUnavailable, sess.Notice)
	assert.Empty(t, sess.SavedAddresses)
	assert.Nil(t, sess.SelectedAddressID)
	assert.Equal(t, "Nguyễn Văn An", sess.Shipping.FullName)
}

func TestStartItemSources(t *testing.T) {
	backend := &stubBackend{}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()
	buyNow := &domain.CartItem{ProductID: "p9", Price: 300000, Quantity: 1}

	sess, err := svc.Start(ctx, domain.AuthContext{}, StartInput{BuyNow: buyNow, CartItems: cartItems()})
	require.NoError(t, err)
	require.Len(t, sess.Items, 1)
	assert.Equal(t, "p9", sess.Items[0].ProductID)
	assert.False(t, sess.FromSharedCart)

	sess, err = svc.Start(ctx, domain.AuthContext{}, StartInput{BuyNow: &domain.CartItem{ProductID: "p9"}, CartItems: cartItems()})
	require.NoError(t, err)
	assert.Len(t, sess.Items, 2)
	assert.True(t, sess.FromSharedCart)

	_, err = svc.Start(ctx, domain.AuthContext{}, StartInput{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestStartRejectsInvalidItems(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{})
	ctx := context.Background()

	tests := []struct {
		name string
		in   StartInput
	}{
		{"buy now negative price", StartInput{BuyNow: &domain.CartItem{ProductID: "p9", Price: -1000, Quantity: 1}}},
		{"buy now blank product", StartInput{BuyNow: &domain.CartItem{ProductID: " ", Price: 1000, Quantity: 1}}},
		{"cart negative price", StartInput{CartItems: []domain.CartItem{{ProductID: "p1", Price: -5, Quantity: 1}}}},
		{"cart zero quantity", StartInput{CartItems: []domain.CartItem{{ProductID: "p1", Price: 5, Quantity: 0}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Start(ctx, domain.AuthContext{}, tc.in)
			require.ErrorIs(t, err, ErrInvalidItem)
		})
	}
}

func TestGetUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{})
	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSelectSavedAddress(t *testing.T) {
	backend := &stubBackend{addresses: savedAddresses()}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()

	sess, err := svc.Start(ctx, member(), StartInput{CartItems: cartItems()})
	require.NoError(t, err)

	sess, err = svc.SelectSavedAddress(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, NoticeAddressSelected, sess.Notice)
	assert.Equal(t, "Thành phố Hà Nội", sess.Shipping.City)
	assert.Equal(t, "Quận Ba Đình", sess.Shipping.District)
	assert.Equal(t, "00001", sess.WardID)

	_, err = svc.SelectSavedAddress(ctx, sess.ID, 42)
	require.ErrorIs(t, err, ErrAddressNotFound)

	_, err = svc.StartEditing(ctx, sess.ID)
	require.NoError(t, err)
	_, err = svc.SelectSavedAddress(ctx, sess.ID, 2)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReloadAddressesDropsVanishedSelection(t *testing.T) {
	backend := &stubBackend{addresses: savedAddresses()}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()

	sess, err := svc.Start(ctx, member(), StartInput{CartItems: cartItems()})
	require.NoError(t, err)
	shipping := sess.Shipping

	backend.addresses = savedAddresses()[:1]
	sess, err = svc.ReloadAddresses(ctx, member(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, sess.SavedAddresses, 1)
	assert.Nil(t, sess.SelectedAddressID)
	assert.Equal(t, shipping, sess.Shipping)
}

func TestEditThenCancelRestoresForm(t *testing.T) {
	backend := &stubBackend{addresses: savedAddresses()}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()

	start, err := svc.Start(ctx, member(), StartInput{CartItems: cartItems()})
	require.NoError(t, err)

	_, err = svc.CancelEditing(ctx, start.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.UpdateShippingField(ctx, start.ID, "phone", "0900000000")
	require.ErrorIs(t, err, ErrInvalidTransition)

	sess, err := svc.StartEditing(ctx, start.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateEditing, sess.State)
	_, err = svc.StartEditing(ctx, start.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateShippingField(ctx, start.ID, "city", "01")
	require.NoError(t, err)
	sess, err = svc.UpdateShippingField(ctx, start.ID, "fullName", "Trần Thị Bình")
	require.NoError(t, err)
	assert.Equal(t, "Thành phố Hà Nội", sess.Shipping.City)
	assert.Empty(t, sess.Shipping.District)
	assert.Empty(t, sess.DistrictID)

	sess, err = svc.CancelEditing(ctx, start.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateViewing, sess.State)
	assert.Equal(t, NoticeEditCancelled, sess.Notice)
	assert.Equal(t, start.Shipping, sess.Shipping)
	assert.Equal(t, "79", sess.ProvinceID)
	assert.Equal(t, "760", sess.DistrictID)
	assert.Equal(t, "26740", sess.WardID)
	assert.Nil(t, sess.Snapshot)
}

func TestUpdateShippingFieldCascades(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{})
	ctx := context.Background()

	sess, err := svc.Start(ctx, domain.AuthContext{}, StartInput{CartItems: cartItems()})
	require.NoError(t, err)
	id := sess.ID
	_, err = svc.StartEditing(ctx, id)
	require.NoError(t, err)

	_, err = svc.UpdateShippingField(ctx, id, "city", "79")
	require.NoError(t, err)
	_, err = svc.UpdateShippingField(ctx, id, "district", "760")
	require.NoError(t, err)
	sess, err = svc.UpdateShippingField(ctx, id, "ward", "26740")
	require.NoError(t, err)
	assert.Equal(t, "Phường Bến Nghé", sess.Shipping.Ward)

	sess, err = svc.UpdateShippingField(ctx, id, "district", "770")
	require.NoError(t, err)
	assert.Equal(t, "Quận 3", sess.Shipping.District)
	assert.Empty(t, sess.Shipping.Ward)
	assert.Empty(t, sess.WardID)

	// A district from another province is not accepted.
	sess, err = svc.UpdateShippingField(ctx, id, "district", "001")
	require.NoError(t, err)
	assert.Empty(t, sess.Shipping.District)
	assert.Empty(t, sess.DistrictID)
	assert.Equal(t, "79", sess.ProvinceID)

	_, err = svc.UpdateShippingField(ctx, id, "zip", "700000")
	require.ErrorIs(t, err, ErrUnknownField)
}

func fillForm(t *testing.T, svc *Service, id string, phone, email string) {
	t.Helper()
	ctx := context.Background()
	for _, f := range [][2]string{
		{"fullName", "Lê Minh"},
		{"phone", phone},
		{"email", email},
		{"address", "5 Nguyễn Huệ"},
		{"city", "79"},
		{"district", "760"},
		{"ward", "26734"},
	} {
		_, err := svc.UpdateShippingField(ctx, id, f[0], f[1])
		require.NoError(t, err)
	}
}

func TestSaveAddressValidates(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{})
	ctx := context.Background()

	sess, err := svc.Start(ctx, domain.AuthContext{}, StartInput{CartItems: cartItems()})
	require.NoError(t, err)
	id := sess.ID
	_, err = svc.StartEditing(ctx, id)
	require.NoError(t, err)
	fillForm(t, svc, id, "12345", "not-an-email")

	sess, err = svc.SaveAddress(ctx, id)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, map[string]string{
		"phone": "Số điện thoại không hợp lệ",
		"email": "Email không hợp lệ",
	}, verr.Fields)
	require.NotNil(t, sess)
	assert.Equal(t, domain.StateEditing, sess.State)
	assert.Equal(t, verr.Fields, sess.Errors)

	_, err = svc.UpdateShippingField(ctx, id, "phone", "090 123 4567")
	require.NoError(t, err)
	_, err = svc.UpdateShippingField(ctx, id, "email", "minh@example.com")
	require.NoError(t, err)

	sess, err = svc.SaveAddress(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateViewing, sess.State)
	assert.Equal(t, NoticeAddressSaved, sess.Notice)
	assert.Nil(t, sess.SelectedAddressID)
	assert.Empty(t, sess.Errors)
}

func TestSetMethods(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{})
	ctx := context.Background()

	sess, err := svc.Start(ctx, domain.AuthContext{}, StartInput{CartItems: cartItems()})
	require.NoError(t, err)

	sess, err = svc.SetShippingMethod(ctx, sess.ID, domain.ShippingExpress)
	require.NoError(t, err)
	assert.Equal(t, domain.ShippingExpress, sess.ShippingMethod)
	assert.Equal(t, int64(65000), Totals(sess).ShippingFee)

	sess, err = svc.SetPaymentMethod(ctx, sess.ID, domain.PaymentBankTransfer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentBankTransfer, sess.PaymentMethod)

	_, err = svc.SetShippingMethod(ctx, sess.ID, "drone")
	require.ErrorIs(t, err, ErrInvalidMethod)
	_, err = svc.SetPaymentMethod(ctx, sess.ID, "crypto")
	require.ErrorIs(t, err, ErrInvalidMethod)
}

func TestValidateRecordsErrors(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{})
	ctx := context.Background()

	sess, err := svc.Start(ctx, domain.AuthContext{}, StartInput{CartItems: cartItems()})
	require.NoError(t, err)

	sess, ok, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, sess.Errors, 7)
	assert.Equal(t, "Vui lòng nhập họ tên", sess.Errors["fullName"])
	assert.Equal(t, "Vui lòng chọn phường/xã", sess.Errors["ward"])
}

func TestValidateShipping(t *testing.T) {
	valid := domain.ShippingInfo{
		FullName: "Lê Minh", Phone: "0901234567", Email: "minh@example.com",
		Address: "5 Nguyễn Huệ", City: "Thành phố Hồ Chí Minh", District: "Quận 1", Ward: "Phường Bến Nghé",
	}
	assert.Empty(t, ValidateShipping(valid))

	tests := []struct {
		name  string
		edit  func(*domain.ShippingInfo)
		field string
		want  string
	}{
		{"short phone", func(i *domain.ShippingInfo) { i.Phone = "12345" }, "phone", "Số điện thoại không hợp lệ"},
		{"blank phone", func(i *domain.ShippingInfo) { i.Phone = "   " }, "phone", "Vui lòng nhập số điện thoại"},
		{"bad email", func(i *domain.ShippingInfo) { i.Email = "not-an-email" }, "email", "Email không hợp lệ"},
		{"blank name", func(i *domain.ShippingInfo) { i.FullName = "" }, "fullName", "Vui lòng nhập họ tên"},
		{"blank street", func(i *domain.ShippingInfo) { i.Address = " " }, "address", "Vui lòng nhập địa chỉ chi tiết"},
		{"no city", func(i *domain.ShippingInfo) { i.City = "" }, "city", "Vui lòng chọn tỉnh/thành phố"},
		{"no district", func(i *domain.ShippingInfo) { i.District = "" }, "district", "Vui lòng chọn quận/huyện"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := valid
			tt.edit(&info)
			got := ValidateShipping(info)
			assert.Equal(t, map[string]string{tt.field: tt.want}, got)
		})
	}
}
