package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRefresh(t *testing.T) {
	m := New()
	m.RecordRefresh(150*time.Millisecond, 3, 12.5)
	m.RecordRefreshFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Campaigns))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.TotalRaisedEth))
}

func TestRecordTransaction(t *testing.T) {
	m := New()
	m.RecordTransaction("contribute", "confirmed")
	m.RecordTransaction("contribute", "confirmed")
	m.RecordTransaction("finalizeCampaign", "reverted")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transactions.WithLabelValues("contribute", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("finalizeCampaign", "reverted")))
}

func TestSetConnected(t *testing.T) {
	m := New()
	m.SetConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WalletConnected))
	m.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WalletConnected))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordNotification("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `novafund_ui_notifications_total{severity="success"} 1`)
}
