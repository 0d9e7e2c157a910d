package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  RawAddress
		want ShippingAddress
	}{
		{
			name: "canonical fields",
			raw:  RawAddress{"street": "1 Main", "city": "Arusha", "state": "Arusha", "zipCode": "23101", "country": "Tanzania"},
			want: ShippingAddress{Street: "1 Main", City: "Arusha", State: "Arusha", ZipCode: "23101", Country: "Tanzania"},
		},
		{
			name: "regional aliases",
			raw: RawAddress{
				"residence": "Plot 4, Mikocheni", "district": "Kinondoni", "region": "Dar es Salaam",
				"postalCode": 14112.0, "country": "Tanzania", "phone": "0712345678",
			},
			want: ShippingAddress{
				Street: "Plot 4, Mikocheni", City: "Kinondoni", State: "Dar es Salaam", ZipCode: "14112",
				Country: "Tanzania", MobileNumber: "0712345678",
				Region: "Dar es Salaam", District: "Kinondoni", Residence: "Plot 4, Mikocheni",
			},
		},
		{
			name: "canonical wins over alias",
			raw:  RawAddress{"city": "Dodoma", "district": "Ignored"},
			want: ShippingAddress{City: "Dodoma", District: "Ignored"},
		},
		{
			name: "blank canonical falls through",
			raw:  RawAddress{"city": "  ", "district": "Ilala"},
			want: ShippingAddress{City: "Ilala", District: "Ilala"},
		},
		{
			name: "json number and int",
			raw:  RawAddress{"zipCode": json.Number("00100"), "mobileNumber": 712345678},
			want: ShippingAddress{ZipCode: "00100", MobileNumber: "712345678"},
		},
		{
			name: "non-scalar values are dropped",
			raw:  RawAddress{"street": []any{"a"}, "city": map[string]any{"x": 1}},
			want: ShippingAddress{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.raw))
		})
	}
}

func TestShippingAddressValidate(t *testing.T) {
	err := ShippingAddress{Street: "1 Main", Country: "TZ"}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Shipping address is missing required fields: city, state, zipCode", err.Error())

	assert.NoError(t, ShippingAddress{Street: "a", City: "b", State: "c", ZipCode: "d", Country: "e"}.Validate())
}

func TestAggregateRatings(t *testing.T) {
	rating, n := AggregateRatings(nil)
	assert.Zero(t, rating)
	assert.Zero(t, n)

	rating, n = AggregateRatings([]Review{{Rating: 5}, {Rating: 4}, {Rating: 4}})
	assert.InDelta(t, 13.0/3.0, rating, 1e-9)
	assert.Equal(t, 3, n)
}

func TestReviewPatchApply(t *testing.T) {
	r := Review{Rating: 3, Comment: "ok"}
	empty := "   "
	assert.False(t, ReviewPatch{Comment: &empty}.Apply(&r))
	assert.Equal(t, "ok", r.Comment)

	same := 3
	assert.False(t, ReviewPatch{Rating: &same}.Apply(&r))

	five, better := 5, " great "
	assert.True(t, ReviewPatch{Rating: &five, Comment: &better}.Apply(&r))
	assert.Equal(t, Review{Rating: 5, Comment: "great"}, r)

	bad := 9
	assert.ErrorIs(t, ReviewPatch{Rating: &bad}.Validate(), ErrValidation)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrEmptyOrder, ErrValidation},
		{ErrProductNotFound, ErrNotFound},
		{ErrProductNotFound, ErrStock},
		{ErrInsufficientStock, ErrStock},
		{ErrInconsistentStock, ErrUnexpected},
		{ErrDuplicateReview, ErrConflict},
		{ErrAlreadyPaid, ErrConflict},
		{ErrInvalidToken, ErrUnauthenticated},
		{Validationf("bad %d", 1), ErrValidation},
		{Forbiddenf("nope"), ErrForbidden},
		{fmt.Errorf("wrapped: %w", ErrOrderNotFound), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
		})
	}
	assert.NotErrorIs(t, ErrInsufficientStock, ErrNotFound)
}

func TestStockErrorMessages(t *testing.T) {
	missing := &StockError{ProductID: "p-1", Err: ErrProductNotFound}
	assert.Equal(t, "Product not found: p-1", missing.Error())
	assert.ErrorIs(t, missing, ErrNotFound)

	short := &StockError{ProductID: "p-2", Name: "Kanga", Requested: 3, Available: 1, Err: ErrInsufficientStock}
	assert.Equal(t, "Insufficient stock for Kanga. Available: 1", short.Error())
	assert.ErrorIs(t, short, ErrStock)

	var se *StockError
	require.True(t, errors.As(fmt.Errorf("reserve: %w", short), &se))
	assert.Equal(t, 1, se.Available)
}

func TestAuthorize(t *testing.T) {
	assert.ErrorIs(t, Authorize(Actor{}, CapManageOrders), ErrUnauthenticated)
	assert.ErrorIs(t, Authorize(Actor{UserID: "u", Role: RoleUser}, CapManageOrders), ErrForbidden)
	assert.NoError(t, Authorize(Actor{UserID: "u", Role: RoleAdmin}, CapManageOrders))
	assert.False(t, Actor{Role: RoleAdmin}.Can(CapManageUsers))
	for _, c := range []Capability{CapManageCatalog, CapManageOrders, CapModerateReviews, CapManageUsers} {
		assert.True(t, RoleAdmin.Can(c), c.String())
		assert.False(t, RoleUser.Can(c), c.String())
	}
}

func TestPricing(t *testing.T) {
	p := Pricing{ItemsPrice: 45.48, TaxPrice: 4.55, ShippingPrice: 10, TotalPrice: 60.03}
	assert.NoError(t, p.Validate())
	assert.Less(t, p.Drift(), 0.01)

	p.TaxPrice = -1
	assert.ErrorIs(t, p.Validate(), ErrValidation)
}

func TestProductFilterNormalize(t *testing.T) {
	f := ProductFilter{Page: -2, Limit: 1000, Sort: "weird"}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.Limit)
	assert.Equal(t, SortNewest, f.Sort)
	assert.Zero(t, f.Offset())

	f = ProductFilter{Page: 3}
	f.Normalize()
	assert.Equal(t, 2*DefaultProductPageSize, f.Offset())
}
