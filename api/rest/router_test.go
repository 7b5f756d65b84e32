package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/miyabiren/tabletop-companion/api/rest"
	"github.com/miyabiren/tabletop-companion/audit"
	"github.com/miyabiren/tabletop-companion/config"
	"github.com/miyabiren/tabletop-companion/game/display"
	"github.com/miyabiren/tabletop-companion/game/economy"
	"github.com/miyabiren/tabletop-companion/game/roster"
	"github.com/miyabiren/tabletop-companion/game/stats"
	mw "github.com/miyabiren/tabletop-companion/middleware"
	"github.com/miyabiren/tabletop-companion/model"
	"github.com/miyabiren/tabletop-companion/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

// newTestServer wires the full route table against an in-memory DB and cache,
// mirroring the production setup.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: time.Hour}
	game := config.GameConfig{StatSessionTTL: time.Minute, MaxCharacters: 5}

	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(nil) })

	rosterIx := roster.New(db, c, logger)
	statsSvc := stats.NewService(db, auditSvc, display.Nop{}, game.StatSessionTTL, logger)
	ledger := economy.NewLedger(db, auditSvc, display.Nop{}, logger)

	r := gin.New()
	r.Use(mw.TraceID())

	authH := apirest.NewAuthHandler(db, c, sec)
	charH := apirest.NewCharacterHandler(db, rosterIx, game)
	statsH := apirest.NewStatsHandler(statsSvc)
	walletH := apirest.NewWalletHandler(db)
	shopH := apirest.NewShopHandler(db)
	transferH := apirest.NewTransferHandler(ledger)
	adminH := apirest.NewAdminHandler(db, ledger, rosterIx, logger)

	r.POST("/api/auth/login", authH.Login)

	api := r.Group("/api", mw.Auth(sec, c))
	{
		api.POST("/auth/logout", authH.Logout)

		api.GET("/characters", charH.List)
		api.POST("/characters", charH.Create)
		api.GET("/characters/resolve", charH.Resolve)
		api.GET("/characters/:id", charH.Get)
		api.POST("/characters/:id/rename", charH.Rename)
		api.POST("/characters/:id/retire", charH.Retire)

		api.POST("/characters/:id/stats/:track", statsH.Open)
		api.POST("/characters/:id/stats/:track/adjust", statsH.Adjust)
		api.POST("/characters/:id/stats/:track/apply", statsH.Apply)
		api.DELETE("/characters/:id/stats/:track", statsH.Cancel)

		api.POST("/wallets", walletH.Create)
		api.GET("/wallets/:id", walletH.Get)
		api.POST("/wallets/:id/owners", walletH.AddOwner)

		api.POST("/shops", shopH.Create)
		api.GET("/shops/:id", shopH.Get)

		api.POST("/transfers", transferH.Create)
		api.GET("/transfers", transferH.List)
		api.GET("/holders/:kind/:id/balance", transferH.Balance)

		admin := api.Group("/admin", mw.GMOnly())
		{
			admin.POST("/characters/:id/stats/reset", adminH.ResetStats)
			admin.POST("/grant", adminH.Grant)
			admin.GET("/audit", adminH.AuditLogs)
			admin.GET("/roster/:guild_id", adminH.GuildRoster)
			admin.POST("/roster/:guild_id/rebuild", adminH.RebuildRoster)
		}
	}

	return &testServer{router: r, db: db}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// login registers (or re-authenticates) a user and returns the session token.
func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()
	w := ts.request(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": username, "password": "hunter42"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

// loginGM logs in and promotes the account before re-issuing the token, so
// the GM claim is baked in.
func (ts *testServer) loginGM(t *testing.T, username string) string {
	t.Helper()
	ts.login(t, username)
	require.NoError(t, ts.db.Model(&model.Account{}).
		Where("username = ?", username).Update("gm", true).Error)
	return ts.login(t, username)
}

// createCharacter makes a character through the API and returns its ID.
func (ts *testServer) createCharacter(t *testing.T, token, name string, speciesID int64) int64 {
	t.Helper()
	w := ts.request(t, http.MethodPost, "/api/characters", token,
		map[string]interface{}{"name": name, "guild_id": 1, "species_id": speciesID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ch := decode(t, w)["character"].(map[string]interface{})
	return int64(ch["id"].(float64))
}
