package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nornex-as/portal/internal/handlers"
	"github.com/nornex-as/portal/internal/models"
)

func TestCreateAddress_Success(t *testing.T) {
	var captured *models.Address
	mockAddr := &handlers.MockAddressService{
		AddAddressFunc: func(ctx context.Context, address *models.Address) (*models.Address, error) {
			captured = address
			address.ID = "addr_1"
			address.IsDefault = true
			return address, nil
		},
	}

	handler := handlers.NewAddressHandler(mockAddr)
	req := handlers.NewTestRequest(t, "POST", "/account/addresses", handlers.AddressRequest{
		Type:       "shipping",
		Label:      "Hjemme",
		Street:     "Storgata 1",
		PostalCode: "0155",
		City:       "Oslo",
	})
	req = handlers.WithAuthContext(req, "cust_1", "kunde@example.com")

	w := httptest.NewRecorder()
	handler.Create(w, req)

	var resp handlers.AddressResponse
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "addr_1", resp.ID)
	assert.True(t, resp.IsDefault)
	assert.Equal(t, "Norge", resp.Country, "country should default to Norge")
	assert.Equal(t, "cust_1", captured.CustomerID)
}

func TestCreateAddress_InvalidType(t *testing.T) {
	handler := handlers.NewAddressHandler(&handlers.MockAddressService{})
	req := handlers.NewTestRequest(t, "POST", "/account/addresses", handlers.AddressRequest{
		Type:       "vacation",
		Street:     "Storgata 1",
		PostalCode: "0155",
		City:       "Oslo",
	})
	req = handlers.WithAuthContext(req, "cust_1", "kunde@example.com")

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestCreateAddress_Unauthenticated(t *testing.T) {
	handler := handlers.NewAddressHandler(&handlers.MockAddressService{})
	req := handlers.NewTestRequest(t, "POST", "/account/addresses", handlers.AddressRequest{
		Type:       "shipping",
		Street:     "Storgata 1",
		PostalCode: "0155",
		City:       "Oslo",
	})

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestSetDefaultAddress(t *testing.T) {
	var gotID, gotType string
	mockAddr := &handlers.MockAddressService{
		SetDefaultAddressFunc: func(ctx context.Context, customerID, id, addressType string) error {
			gotID = id
			gotType = addressType
			return nil
		},
	}

	handler := handlers.NewAddressHandler(mockAddr)
	req := handlers.NewTestRequest(t, "POST", "/account/addresses/addr_2/default", handlers.SetDefaultRequest{
		Type: "billing",
	})
	req = handlers.WithAuthContext(req, "cust_1", "kunde@example.com")
	req = handlers.WithURLParam(req, "id", "addr_2")

	w := httptest.NewRecorder()
	handler.SetDefault(w, req)

	assert.Equal(t, 204, w.Code)
	assert.Equal(t, "addr_2", gotID)
	assert.Equal(t, "billing", gotType)
}

func TestDeleteAddress_NotFound(t *testing.T) {
	mockAddr := &handlers.MockAddressService{
		RemoveAddressFunc: func(ctx context.Context, customerID, id string) error {
			return models.ErrNotFound
		},
	}

	handler := handlers.NewAddressHandler(mockAddr)
	req := handlers.NewTestRequest(t, "DELETE", "/account/addresses/addr_404", nil)
	req = handlers.WithAuthContext(req, "cust_1", "kunde@example.com")
	req = handlers.WithURLParam(req, "id", "addr_404")

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}
