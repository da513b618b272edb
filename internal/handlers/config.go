package handlers

import (
	"net/http"
	"regexp"

	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
	"github.com/crucial707/meddevice/internal/tunnel"
)

// TunnelInfo reports the public tunnel state.
type TunnelInfo interface {
	Info() tunnel.Info
}

// ConfigHandler serves system settings and first-run setup.
type ConfigHandler struct {
	Settings *repo.SysConfigRepo
	Users    *repo.UserRepo
	// Tunnel is nil when the tunnel is disabled.
	Tunnel TunnelInfo
}

// GetConfig returns all settings as an object. The bot token is never returned.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	all, err := h.Settings.All(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	delete(all, repo.ConfigZaloToken)
	writeJSON(w, http.StatusOK, all)
}

// SaveConfig upserts settings. Body: {"entries": [{"key": "...", "value": "..."}]}.
func (h *ConfigHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Entries []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"entries"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Entries == nil {
		JSONError(w, "entries is required", http.StatusBadRequest)
		return
	}
	entries := make(map[string]string, len(input.Entries))
	for _, e := range input.Entries {
		switch e.Key {
		case "":
			JSONValidationError(w, "validation failed", map[string]string{"key": "required"}, http.StatusBadRequest)
			return
		case repo.ConfigZaloToken:
			JSONValidationError(w, "validation failed", map[string]string{e.Key: "use /zalo/token"}, http.StatusBadRequest)
			return
		}
		entries[e.Key] = e.Value
	}
	if err := h.Settings.SetMany(r.Context(), entries); err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetupStatus tells the UI whether the first admin still has to be created.
func (h *ConfigHandler) SetupStatus(w http.ResponseWriter, r *http.Request) {
	n, err := h.Users.CountAdmins(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	var info tunnel.Info
	if h.Tunnel != nil {
		info = h.Tunnel.Info()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"needs_setup":      n == 0,
		"tunnel_connected": info.Connected,
		"tunnel_url":       info.URL,
	})
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// tunnelURL is the public address a tunnel subdomain will be served from.
func tunnelURL(subdomain string) string {
	return "https://" + subdomain + ".nport.link"
}

// SetupAdmin creates the first admin account and optionally chooses the tunnel subdomain.
// It is refused once any admin exists.
func (h *ConfigHandler) SetupAdmin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FullName  string `json:"full_name" validate:"required,max=255"`
		Username  string `json:"username" validate:"required,min=3,max=64"`
		Password  string `json:"password" validate:"required,min=6,max=72"`
		Subdomain string `json:"subdomain"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	fields := validateStruct(input)
	if input.Subdomain != "" && !subdomainPattern.MatchString(input.Subdomain) {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["subdomain"] = "lowercase letters, digits and dashes only"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	n, err := h.Users.CountAdmins(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if n > 0 {
		JSONError(w, "system is already set up", http.StatusBadRequest)
		return
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	id, err := h.Users.Create(r.Context(), models.UserInput{
		Username: input.Username,
		FullName: input.FullName,
		Role:     models.RoleAdmin,
	}, hash)
	if err != nil {
		writeRepoError(w, err, "user not found")
		return
	}

	subdomain := input.Subdomain
	if subdomain != "" {
		if err := h.Settings.Set(r.Context(), repo.ConfigSubdomain, subdomain); err != nil {
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
	} else if subdomain, err = h.Settings.Get(r.Context(), repo.ConfigSubdomain); err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	out := map[string]any{"success": true, "id": id}
	if subdomain != "" {
		u := tunnelURL(subdomain)
		if err := h.Settings.Set(r.Context(), repo.ConfigDomainURL, u); err != nil {
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
		out["subdomain"] = subdomain
		out["tunnel_url"] = u
	}
	writeJSON(w, http.StatusCreated, out)
}

// TunnelInfo reports the tunnel state, falling back to stored settings when it is disabled.
func (h *ConfigHandler) TunnelInfo(w http.ResponseWriter, r *http.Request) {
	var info tunnel.Info
	if h.Tunnel != nil {
		info = h.Tunnel.Info()
	}
	if info.Subdomain == "" {
		sub, err := h.Settings.Get(r.Context(), repo.ConfigSubdomain)
		if err != nil {
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
		info.Subdomain = sub
	}
	writeJSON(w, http.StatusOK, info)
}
