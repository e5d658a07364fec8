package api

import (
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// recordActivity appends an entry to the caller's company feed. Failures
// are logged and do not fail the request.
func recordActivity(r *http.Request, db *sql.DB, log *zap.Logger, action, entity string, entityID int64, format string, args ...any) {
	claims := GetClaims(r.Context())
	if claims == nil || claims.Company() == 0 {
		return
	}
	a := model.ActivityLog{
		CompanyID: claims.Company(),
		UserID:    &claims.UserID,
		Action:    action,
		Entity:    entity,
		Message:   fmt.Sprintf(format, args...),
	}
	if entityID != 0 {
		a.EntityID = &entityID
	}
	if err := store.LogActivity(r.Context(), db, a); err != nil {
		log.Warn("recording activity", zap.String("entity", entity), zap.Error(err))
	}
}

func message(w http.ResponseWriter, text string) {
	jsonResponse(w, http.StatusOK, map[string]string{"message": text})
}
