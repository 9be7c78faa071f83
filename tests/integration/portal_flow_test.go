package integration

import (
	"context"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	suiteOnce sync.Once
	suiteErr  error
	testDB    *TestDB
	ts        *TestServer
)

func TestMain(m *testing.M) {
	code := m.Run()
	if ts != nil {
		ts.Close()
	}
	if testDB != nil {
		testDB.Teardown(context.Background())
	}
	os.Exit(code)
}

// setupSuite lazily starts the postgres container and test server so that
// `go test -short` skips without touching docker
func setupSuite(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires docker")
	}

	suiteOnce.Do(func() {
		ctx := context.Background()
		testDB, suiteErr = SetupTestDatabase(ctx)
		if suiteErr != nil {
			return
		}
		ts, suiteErr = NewTestServer(testDB.DB)
	})
	if suiteErr != nil {
		t.Fatalf("suite setup failed: %v", suiteErr)
	}
}

// requestFrom sends a request with a fixed client IP so each test gets its
// own rate limit bucket
func requestFrom(t *testing.T, ip, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	headers := map[string]string{"X-Forwarded-For": ip}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	resp, err := ts.Request(method, path, body, headers)
	require.NoError(t, err)
	return resp
}

func registerAndLogin(t *testing.T, ip, suffix string) (accessToken, email, password string) {
	t.Helper()

	email, password = TestCustomer(suffix)

	resp := requestFrom(t, ip, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        email,
		"password":     password,
		"first_name":   "Kari",
		"last_name":    "Nordmann",
		"account_type": "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = requestFrom(t, ip, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)

	return accessToken, email, password
}

// ============================================================================
// Registration and login
// ============================================================================

func TestRegisterLoginAndProfile(t *testing.T) {
	setupSuite(t)
	ip := "203.0.113.10"

	token, email, _ := registerAndLogin(t, ip, "profile")

	resp := requestFrom(t, ip, http.MethodGet, "/account/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &profile))
	assert.Equal(t, email, profile["email"])
	assert.Equal(t, "private", profile["account_type"])
	assert.Nil(t, profile["company_info"])
}

func TestRegisterCompanyAccount(t *testing.T) {
	setupSuite(t)
	ip := "203.0.113.11"

	email, password := TestCustomer("company")
	resp := requestFrom(t, ip, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        email,
		"password":     password,
		"first_name":   "Ola",
		"last_name":    "Hansen",
		"account_type": "company",
		"company_name": "Testfirma AS",
		"org_number":   "974760673",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &created))
	assert.Equal(t, "company", created["account_type"])

	company, ok := created["company_info"].(map[string]interface{})
	require.True(t, ok, "company account registered with a name must carry a company profile")
	assert.Equal(t, "Testfirma AS", company["company_name"])
	assert.Equal(t, "974760673", company["org_number"])
	assert.Equal(t, "Ola Hansen", company["contact_person"])
}

func TestLoginWrongPassword(t *testing.T) {
	setupSuite(t)
	ip := "203.0.113.12"

	email, password := TestCustomer("wrongpw")
	_, err := SeedCustomer(context.Background(), testDB.Pool, email, password, "private")
	require.NoError(t, err)

	resp := requestFrom(t, ip, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "FeilPassord999",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ============================================================================
// Address book
// ============================================================================

func TestAddressDefaults(t *testing.T) {
	setupSuite(t)
	ip := "203.0.113.13"

	token, _, _ := registerAndLogin(t, ip, "address")

	// First address of a type becomes the default
	resp := requestFrom(t, ip, http.MethodPost, "/account/addresses", token, map[string]string{
		"type":        "shipping",
		"label":       "Hjemme",
		"street":      "Storgata 1",
		"postal_code": "0155",
		"city":        "Oslo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var first map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &first))
	assert.Equal(t, true, first["is_default"])
	assert.Equal(t, "Norge", first["country"])

	// Second address of the same type is not
	resp = requestFrom(t, ip, http.MethodPost, "/account/addresses", token, map[string]string{
		"type":        "shipping",
		"label":       "Jobb",
		"street":      "Karl Johans gate 22",
		"postal_code": "0026",
		"city":        "Oslo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var second map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &second))
	assert.Equal(t, false, second["is_default"])

	// Promote the second address, the first loses its default flag
	secondID, _ := second["id"].(string)
	resp = requestFrom(t, ip, http.MethodPost, "/account/addresses/"+secondID+"/default", token, map[string]string{
		"type": "shipping",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = requestFrom(t, ip, http.MethodGet, "/account/addresses", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var addresses []map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &addresses))
	require.Len(t, addresses, 2)

	defaults := 0
	for _, addr := range addresses {
		if addr["is_default"] == true {
			defaults++
			assert.Equal(t, secondID, addr["id"])
		}
	}
	assert.Equal(t, 1, defaults)
}

// ============================================================================
// Notification feed
// ============================================================================

func TestNotificationFeed(t *testing.T) {
	setupSuite(t)
	ctx := context.Background()
	ip := "203.0.113.14"

	email, password := TestCustomer("feed")
	customer, err := SeedCustomer(ctx, testDB.Pool, email, password, "private")
	require.NoError(t, err)

	resp := requestFrom(t, ip, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)

	unreadID, err := SeedNotification(ctx, testDB.Pool, customer.ID, "order", "Ordre sendt", false)
	require.NoError(t, err)
	_, err = SeedNotification(ctx, testDB.Pool, customer.ID, "invoice", "Faktura forfaller", false)
	require.NoError(t, err)
	_, err = SeedNotification(ctx, testDB.Pool, customer.ID, "promo", "Kampanje", true)
	require.NoError(t, err)

	// Login itself adds an account notification, so count relative to that
	resp = requestFrom(t, ip, http.MethodGet, "/account/notifications", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var feed struct {
		Notifications []map[string]interface{} `json:"notifications"`
		UnreadCount   int                      `json:"unread_count"`
	}
	require.NoError(t, ParseJSONResponse(resp, &feed))
	baseline := feed.UnreadCount
	require.GreaterOrEqual(t, baseline, 2)

	// Marking one read drops the unread count by exactly one
	resp = requestFrom(t, ip, http.MethodPost, "/account/notifications/"+unreadID+"/read", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Marking the same one again is a no-op
	resp = requestFrom(t, ip, http.MethodPost, "/account/notifications/"+unreadID+"/read", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = requestFrom(t, ip, http.MethodGet, "/account/notifications", token, nil)
	require.NoError(t, ParseJSONResponse(resp, &feed))
	assert.Equal(t, baseline-1, feed.UnreadCount)

	resp = requestFrom(t, ip, http.MethodPost, "/account/notifications/read-all", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = requestFrom(t, ip, http.MethodGet, "/account/notifications", token, nil)
	require.NoError(t, ParseJSONResponse(resp, &feed))
	assert.Equal(t, 0, feed.UnreadCount)
}

// ============================================================================
// Password change with emailed PIN
// ============================================================================

func TestPasswordChangeWithPIN(t *testing.T) {
	setupSuite(t)
	ip := "203.0.113.15"

	token, email, oldPassword := registerAndLogin(t, ip, "pin")

	resp := requestFrom(t, ip, http.MethodPost, "/account/password/request", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	lastEmail := ts.EmailService.GetLastEmail()
	require.NotNil(t, lastEmail)
	assert.Equal(t, email, lastEmail.To)

	pin := ExtractPINFromEmail(lastEmail.Body)
	require.Len(t, pin, 6)

	resp = requestFrom(t, ip, http.MethodGet, "/account/password/status", token, nil)
	var status struct {
		Pending bool `json:"pending"`
	}
	require.NoError(t, ParseJSONResponse(resp, &status))
	assert.True(t, status.Pending)

	newPassword := "NyttSikkertPassord456"
	resp = requestFrom(t, ip, http.MethodPost, "/account/password/confirm", token, map[string]string{
		"pin":          pin,
		"new_password": newPassword,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Old password is dead, new one works
	resp = requestFrom(t, ip, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": oldPassword,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = requestFrom(t, ip, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": newPassword,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ============================================================================
// Company registry lookup
// ============================================================================

func TestCompanyLookupEndpoint(t *testing.T) {
	setupSuite(t)
	ip := "203.0.113.16"

	resp := requestFrom(t, ip, http.MethodGet, "/companies/974760673", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &result))
	assert.Equal(t, "REGISTERENHETEN I BRØNNØYSUND", result["company_name"])
	assert.Equal(t, "974760673", result["org_number"])

	// Fails the mod-11 check before any registry call
	resp = requestFrom(t, ip, http.MethodGet, "/companies/974760674", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Well-formed but unknown to the registry
	resp = requestFrom(t, ip, http.MethodGet, "/companies/971524960", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
