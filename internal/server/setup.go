package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ngenohkevin/hivedeck-drive/config"
)

// SetupHandlers handles the setup and settings endpoints
type SetupHandlers struct {
	cfg *config.Config
}

// NewSetupHandlers creates setup handlers
func NewSetupHandlers(cfg *config.Config) *SetupHandlers {
	return &SetupHandlers{cfg: cfg}
}

// SetupStatus reports whether the bridge still needs an API key (no auth required)
func (h *SetupHandlers) SetupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"setup_mode": h.cfg.SetupMode,
		"env_file":   h.cfg.EnvFile,
	})
}

// GetSettings returns current settings (requires auth)
func (h *SetupHandlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"drive_api_url":         h.cfg.DriveAPIURL,
		"root_label":            h.cfg.RootLabel,
		"locale":                h.cfg.Locale,
		"read_retries":          h.cfg.ReadRetries,
		"thumbnail_concurrency": h.cfg.ThumbnailConcurrency,
		"port":                  h.cfg.Port,
		"host":                  h.cfg.Host,
		"allowed_origins":       h.cfg.AllowedOrigins,
		"log_level":             h.cfg.LogLevel,
		"rate_limit_rps":        h.cfg.RateLimitRPS,
		"env_file":              h.cfg.EnvFile,
		"setup_mode":            h.cfg.SetupMode,
		// Secrets are never echoed, only whether they are set
		"api_key_configured":       h.cfg.APIKey != "",
		"drive_session_configured": h.cfg.SessionToken != "",
	})
}

// GenerateKey generates a new API key
func (h *SetupHandlers) GenerateKey(c *gin.Context) {
	apiKey, err := config.GenerateAPIKey()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate API key: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"api_key": apiKey,
	})
}

// SaveKey saves the API key to the .env file
func (h *SetupHandlers) SaveKey(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: api_key is required",
		})
		return
	}

	// Validate API key length
	if len(req.APIKey) < 32 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "API key must be at least 32 characters",
		})
		return
	}

	if err := h.cfg.SaveAPIKey(req.APIKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save API key: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "API key saved successfully",
		"env_file": h.cfg.EnvFile,
		"note":     "Restart the bridge to apply the new API key for authentication",
	})
}

// UpdateSettings updates browsing settings
func (h *SetupHandlers) UpdateSettings(c *gin.Context) {
	var req struct {
		RootLabel      string   `json:"root_label"`
		Locale         string   `json:"locale"`
		AllowedOrigins []string `json:"allowed_origins"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request",
		})
		return
	}

	updates := make(map[string]string)

	if label := strings.TrimSpace(req.RootLabel); label != "" {
		h.cfg.RootLabel = label
		updates["DRIVE_ROOT_LABEL"] = label
	}

	if locale := strings.TrimSpace(req.Locale); locale != "" {
		h.cfg.Locale = locale
		updates["DRIVE_LOCALE"] = locale
	}

	if len(req.AllowedOrigins) > 0 {
		h.cfg.AllowedOrigins = req.AllowedOrigins
		updates["ALLOWED_ORIGINS"] = strings.Join(req.AllowedOrigins, ",")
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No settings to update",
		})
		return
	}

	if err := config.UpdateEnvFile(h.cfg.EnvFile, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save settings: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Settings updated",
		"root_label":      h.cfg.RootLabel,
		"locale":          h.cfg.Locale,
		"allowed_origins": h.cfg.AllowedOrigins,
		"note":            "Restart the bridge to apply the new settings",
	})
}
