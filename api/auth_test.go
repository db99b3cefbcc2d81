package api_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/garnizeh/labbook/api"
)

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		contentType string
		wantStatus  int
		wantError   string
	}{
		{
			name:        "NotJSON",
			body:        "username=admin&password=admin123",
			contentType: "application/x-www-form-urlencoded",
			wantStatus:  http.StatusBadRequest,
			wantError:   "Content-Type must be application/json",
		},
		{
			name:       "InvalidBody",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "MissingPassword",
			body:       map[string]string{"username": "admin"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Username and password are required",
		},
		{
			name:       "WrongPassword",
			body:       map[string]string{"username": "admin", "password": "nope"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid username or password",
		},
		{
			name:       "UnknownUser",
			body:       map[string]string{"username": "root", "password": "admin123"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid username or password",
		},
		{
			name:       "EmptyCredentials",
			body:       map[string]string{"username": "", "password": ""},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid username or password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupServer(t)

			var res *http.Response
			if tt.contentType != "" {
				r, err := env.client.Post(env.srv.URL+"/admin/login", tt.contentType, strings.NewReader(tt.body.(string)))
				if err != nil {
					t.Fatalf("post: %v", err)
				}
				defer r.Body.Close()
				res = r
			} else {
				res = env.do(t, http.MethodPost, "/admin/login", tt.body)
			}

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("want %d got %d", tt.wantStatus, res.StatusCode)
			}
			body := decode[map[string]any](t, res)
			if body["error"] != tt.wantError {
				t.Fatalf("want error %q got %v", tt.wantError, body["error"])
			}
			for _, c := range res.Cookies() {
				if c.Name == api.SessionCookieName {
					t.Fatalf("no session cookie expected on failure")
				}
			}

			// failed logins leave the client signed out
			if r := env.do(t, http.MethodGet, "/admin/check-auth", nil); r.StatusCode != http.StatusUnauthorized {
				t.Fatalf("check-auth after failed login: expected 401 got %d", r.StatusCode)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := setupServer(t)

	// signed out
	res := env.do(t, http.MethodGet, "/admin/check-auth", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("check-auth: expected 401 got %d", res.StatusCode)
	}
	if body := decode[map[string]any](t, res); body["authenticated"] != false {
		t.Fatalf("check-auth: unexpected body %v", body)
	}
	if res := env.do(t, http.MethodGet, "/admin", nil); res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/admin/login" {
		t.Fatalf("dashboard: expected redirect to login, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}
	if res := env.do(t, http.MethodGet, "/api/admin/stats", nil); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("stats: expected 401 got %d", res.StatusCode)
	}
	res = env.do(t, http.MethodGet, "/admin/login", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login page: expected 200 got %d", res.StatusCode)
	}
	if b, _ := io.ReadAll(res.Body); !strings.Contains(string(b), "login") {
		t.Fatalf("login page: unexpected body %q", string(b))
	}

	// sign in
	res = env.do(t, http.MethodPost, "/admin/login", map[string]string{"username": "admin", "password": "admin123"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200 got %d", res.StatusCode)
	}
	login := decode[map[string]string](t, res)
	if login["message"] != "Login successful" || login["redirect"] != "/admin" {
		t.Fatalf("login: unexpected body %v", login)
	}
	var token string
	for _, c := range res.Cookies() {
		if c.Name != api.SessionCookieName {
			continue
		}
		token = c.Value
		if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 3600 {
			t.Fatalf("session cookie attributes: %+v", c)
		}
	}
	if token == "" {
		t.Fatalf("login: no session cookie set")
	}

	res = env.do(t, http.MethodGet, "/admin/check-auth", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("check-auth: expected 200 got %d", res.StatusCode)
	}
	if body := decode[map[string]any](t, res); body["authenticated"] != true || body["username"] != "admin" {
		t.Fatalf("check-auth: unexpected body %v", body)
	}
	if res := env.do(t, http.MethodGet, "/admin", nil); res.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: expected 200 got %d", res.StatusCode)
	}
	if res := env.do(t, http.MethodGet, "/admin/login", nil); res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/admin" {
		t.Fatalf("login page when signed in: expected redirect to /admin, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	// sign out
	res = env.do(t, http.MethodGet, "/admin/logout", nil)
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/" {
		t.Fatalf("logout: expected redirect to /, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}
	if res := env.do(t, http.MethodGet, "/admin/check-auth", nil); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("check-auth after logout: expected 401 got %d", res.StatusCode)
	}

	// the old token is dead server-side too
	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/admin/stats", nil)
	req.AddCookie(&http.Cookie{Name: api.SessionCookieName, Value: token})
	replay, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	defer replay.Body.Close()
	if replay.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed token after logout: expected 401 got %d", replay.StatusCode)
	}

	// logging out again is harmless
	if res := env.do(t, http.MethodGet, "/admin/logout", nil); res.StatusCode != http.StatusFound {
		t.Fatalf("second logout: expected 302 got %d", res.StatusCode)
	}
}
