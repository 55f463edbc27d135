package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"startpage-sync/src/helpers"
	"startpage-sync/src/models"
)

// LayoutSettingKey is the settings row holding the layout document.
const LayoutSettingKey = "layout"

// -----------------------------------------------------------------------------

// respondError writes {success:false, error} with the status of err's class.
func (s *APIServer) respondError(c *gin.Context, err error) {
	status := helpers.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"success": false, "error": helpers.PublicMessage(err)})
}

// -----------------------------------------------------------------------------

// loadLayout returns the stored layout, or an empty one when none was saved.
func (s *APIServer) loadLayout(ctx context.Context) (models.MLayoutSettings, error) {
	var layout models.MLayoutSettings

	raw, ok, err := s.svc.Settings.GetSetting(ctx, LayoutSettingKey)
	if err != nil || !ok {
		return layout, err
	}
	if err := json.Unmarshal([]byte(raw), &layout); err != nil {
		return layout, helpers.NewDatabaseError("decode stored layout", err)
	}
	return layout, nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) storeLayout(ctx context.Context, layout models.MLayoutSettings) error {
	data, err := json.Marshal(layout)
	if err != nil {
		return err
	}
	return s.svc.Settings.PutSetting(ctx, LayoutSettingKey, string(data))
}

// -----------------------------------------------------------------------------

func filterQuotes(quotes []models.MQuote, symbols map[string]bool) []models.MQuote {
	out := make([]models.MQuote, 0, len(symbols))
	for _, q := range quotes {
		if symbols[q.ID] || symbols[q.Symbol] {
			out = append(out, q)
		}
	}
	return out
}
