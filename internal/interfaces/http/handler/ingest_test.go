package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	billingapp "github.com/otahub/backend/internal/application/billing"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockUsageSink struct {
	mock.Mock
}

func (m *mockUsageSink) RecordDeviceReport(ctx context.Context, rep billingapp.DeviceReport) error {
	return m.Called(ctx, rep).Error(0)
}

func (m *mockUsageSink) RecordBandwidth(ctx context.Context, u *billing.BandwidthUsage) error {
	return m.Called(ctx, u).Error(0)
}

func newIngestRouter(sink UsageSink) *gin.Engine {
	h := NewIngestHandler(sink)
	r := gin.New()
	r.POST("/stats", h.PostStats)
	r.POST("/usage/bandwidth", h.PostBandwidth)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngestHandler_PostStats(t *testing.T) {
	body := `{"app_id":"com.demo.app","device_id":"dev-1","action":"get","version_name":"1.2.0","version_id":7,"platform":"ios","plugin_version":"5.0.0"}`

	t.Run("records the report", func(t *testing.T) {
		sink := new(mockUsageSink)
		sink.On("RecordDeviceReport", mock.Anything, billingapp.DeviceReport{
			AppID:         "com.demo.app",
			DeviceID:      "dev-1",
			Action:        billing.ActionGet,
			VersionName:   "1.2.0",
			VersionID:     7,
			Platform:      "ios",
			PluginVersion: "5.0.0",
		}).Return(nil)

		w := postJSON(newIngestRouter(sink), "/stats", body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
		sink.AssertExpectations(t)
	})

	t.Run("storage failure still answers ok", func(t *testing.T) {
		sink := new(mockUsageSink)
		sink.On("RecordDeviceReport", mock.Anything, mock.Anything).Return(shared.ErrTransient.Wrap(errors.New("timeout")))

		w := postJSON(newIngestRouter(sink), "/stats", body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("unknown action", func(t *testing.T) {
		sink := new(mockUsageSink)
		w := postJSON(newIngestRouter(sink), "/stats", `{"app_id":"com.demo.app","device_id":"dev-1","action":"explode"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":"Invalid body"}`, w.Body.String())
		sink.AssertNotCalled(t, "RecordDeviceReport", mock.Anything, mock.Anything)
	})

	t.Run("missing device", func(t *testing.T) {
		sink := new(mockUsageSink)
		w := postJSON(newIngestRouter(sink), "/stats", `{"app_id":"com.demo.app","action":"get"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":"Invalid body"}`, w.Body.String())
	})
}

func TestIngestHandler_PostBandwidth(t *testing.T) {
	body := `{"app_id":"com.demo.app","device_id":"dev-1","file_size":2048}`

	t.Run("records usage", func(t *testing.T) {
		sink := new(mockUsageSink)
		sink.On("RecordBandwidth", mock.Anything, mock.MatchedBy(func(u *billing.BandwidthUsage) bool {
			return u.AppID == "com.demo.app" && u.DeviceID == "dev-1" && u.FileSize == 2048
		})).Return(nil)

		w := postJSON(newIngestRouter(sink), "/usage/bandwidth", body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
		sink.AssertExpectations(t)
	})

	t.Run("transient failure is reported", func(t *testing.T) {
		sink := new(mockUsageSink)
		sink.On("RecordBandwidth", mock.Anything, mock.Anything).Return(shared.ErrTransient.Wrap(errors.New("timeout")))

		w := postJSON(newIngestRouter(sink), "/usage/bandwidth", body)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("negative size", func(t *testing.T) {
		sink := new(mockUsageSink)
		w := postJSON(newIngestRouter(sink), "/usage/bandwidth", `{"app_id":"com.demo.app","device_id":"dev-1","file_size":-1}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":"Invalid body"}`, w.Body.String())
	})
}
