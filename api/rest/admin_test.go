package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/miyabiren/tabletop-companion/model"
	"github.com/miyabiren/tabletop-companion/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutesRequireGM(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "rena")

	w := ts.request(t, http.MethodGet, "/api/admin/audit", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPost, "/api/admin/grant", token, map[string]interface{}{
		"destination": holderRef("character", 1), "amount": 100,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminGrantMintsMoney(t *testing.T) {
	ts := newTestServer(t)
	sp := testutil.SeedSpecies(t, ts.db, "foxkin", 1, 4)
	player := ts.login(t, "rena")
	gm := ts.loginGM(t, "dungeon-master")
	charID := ts.createCharacter(t, player, "Rena", sp.ID)

	w := ts.request(t, http.MethodPost, "/api/admin/grant", gm, map[string]interface{}{
		"destination": holderRef("character", charID),
		"amount":      250,
		"reason":      "session reward",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(250), decode(t, w)["money"])
}

func TestAdminResetStats(t *testing.T) {
	ts := newTestServer(t)
	sp := testutil.SeedSpecies(t, ts.db, "foxkin", 1, 4)
	player := ts.login(t, "rena")
	gm := ts.loginGM(t, "dungeon-master")
	charID := ts.createCharacter(t, player, "Rena", sp.ID)
	require.NoError(t, ts.db.Model(&model.Character{}).Where("id = ?", charID).
		Updates(map[string]interface{}{"strength": 4, "strength_shadow": 4}).Error)

	w := ts.request(t, http.MethodPost,
		fmt.Sprintf("/api/admin/characters/%d/stats/reset", charID), gm, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ch model.Character
	require.NoError(t, ts.db.Where("id = ?", charID).First(&ch).Error)
	assert.Equal(t, 1, ch.Strength)
	assert.Equal(t, 1, ch.StrengthShadow)
}

func TestAdminRosterRebuild(t *testing.T) {
	ts := newTestServer(t)
	sp := testutil.SeedSpecies(t, ts.db, "foxkin", 1, 4)
	player := ts.login(t, "rena")
	gm := ts.loginGM(t, "dungeon-master")
	ts.createCharacter(t, player, "Rena", sp.ID)

	w := ts.request(t, http.MethodPost, "/api/admin/roster/1/rebuild", gm, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.request(t, http.MethodGet, "/api/characters/resolve?guild_id=1&name=Rena", player, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuditLogs(t *testing.T) {
	ts := newTestServer(t)
	gm := ts.loginGM(t, "dungeon-master")

	require.NoError(t, ts.db.Create(&model.AuditLog{Action: "money_grant"}).Error)

	w := ts.request(t, http.MethodGet, "/api/admin/audit", gm, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode(t, w)["logs"].([]interface{})
	require.NotEmpty(t, logs)
	assert.Equal(t, "money_grant", logs[0].(map[string]interface{})["action"])
}

func TestAdminGuildRosterListing(t *testing.T) {
	ts := newTestServer(t)
	sp := testutil.SeedSpecies(t, ts.db, "foxkin", 1, 4)
	player := ts.login(t, "rena")
	gm := ts.loginGM(t, "dungeon-master")
	id := ts.createCharacter(t, player, "Rena", sp.ID)

	w := ts.request(t, http.MethodGet, "/api/admin/roster/1", gm, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	names := decode(t, w)["roster"].(map[string]interface{})
	assert.Equal(t, float64(id), names["Rena"])
}
