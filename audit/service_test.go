package audit_test

import (
	"testing"

	"github.com/miyabiren/tabletop-companion/audit"
	"github.com/miyabiren/tabletop-companion/model"
	"github.com/miyabiren/tabletop-companion/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogWritesOnStop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, zap.NewNop())

	acc := int64(7)
	svc.Log(audit.Entry{
		TraceID:   "trace-1",
		AccountID: &acc,
		Action:    "money_transfer",
		Detail:    map[string]interface{}{"amount": 25},
	})
	svc.Log(audit.Entry{
		Action: "stat_apply",
		Error:  "concurrent modification detected",
	})
	svc.Stop(nil)

	var logs []model.AuditLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)

	assert.Equal(t, "trace-1", logs[0].TraceID)
	assert.Equal(t, "money_transfer", logs[0].Action)
	require.NotNil(t, logs[0].AccountID)
	assert.Equal(t, int64(7), *logs[0].AccountID)
	assert.JSONEq(t, `{"amount":25}`, string(logs[0].Detail))

	assert.Equal(t, "stat_apply", logs[1].Action)
	assert.Equal(t, "concurrent modification detected", logs[1].Error)
}

func TestBatchFlushAtSize(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, zap.NewNop())

	for i := 0; i < 150; i++ {
		svc.Log(audit.Entry{Action: "stat_session_open"})
	}
	svc.Stop(nil)

	var count int64
	require.NoError(t, db.Model(&model.AuditLog{}).Count(&count).Error)
	assert.Equal(t, int64(150), count)
}

func TestStopIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, zap.NewNop())
	svc.Log(audit.Entry{Action: "stat_session_cancel"})
	svc.Stop(nil)
	svc.Stop(nil)

	var count int64
	require.NoError(t, db.Model(&model.AuditLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
