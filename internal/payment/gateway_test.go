package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	g := NewRazorpayGateway("key", "secret", "http://unused")

	valid := sign("secret", "order_1", "pay_1")
	assert.True(t, g.VerifySignature("order_1", "pay_1", valid))

	assert.False(t, g.VerifySignature("order_1", "pay_1", "deadbeef"))
	assert.False(t, g.VerifySignature("order_2", "pay_1", valid))
	assert.False(t, g.VerifySignature("order_1", "pay_2", valid))
	assert.False(t, g.VerifySignature("order_1", "pay_1", sign("wrong", "order_1", "pay_1")))
	assert.False(t, g.VerifySignature("order_1", "pay_1", ""))
}

func TestCreateRemoteCharge(t *testing.T) {
	t.Run("posts order and returns id", func(t *testing.T) {
		var got razorpayOrderRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/orders", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "key", user)
			assert.Equal(t, "secret", pass)

			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "order_ext_1"})
		}))
		defer srv.Close()

		g := NewRazorpayGateway("key", "secret", srv.URL)
		id, err := g.CreateRemoteCharge(context.Background(), 50000, "INR", "gig_abcd1234")
		require.NoError(t, err)
		assert.Equal(t, "order_ext_1", id)
		assert.Equal(t, int64(50000), got.Amount)
		assert.Equal(t, "INR", got.Currency)
		assert.Equal(t, "gig_abcd1234", got.Receipt)
	})

	t.Run("defaults currency to INR", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req razorpayOrderRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "INR", req.Currency)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "order_ext_2"})
		}))
		defer srv.Close()

		g := NewRazorpayGateway("key", "secret", srv.URL)
		_, err := g.CreateRemoteCharge(context.Background(), 100, "", "r")
		require.NoError(t, err)
	})

	t.Run("surfaces gateway errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"auth failed"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		g := NewRazorpayGateway("key", "bad", srv.URL)
		_, err := g.CreateRemoteCharge(context.Background(), 100, "INR", "r")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=401")
	})

	t.Run("rejects response without order id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{})
		}))
		defer srv.Close()

		g := NewRazorpayGateway("key", "secret", srv.URL)
		_, err := g.CreateRemoteCharge(context.Background(), 100, "INR", "r")
		require.Error(t, err)
	})
}

func TestReceiptFor(t *testing.T) {
	assert.Equal(t, "gig_abcd1234", receiptFor(RefGig, "abcd1234-5678"))
	assert.Equal(t, "proposal_ab", receiptFor(RefProposal, "ab"))
}
