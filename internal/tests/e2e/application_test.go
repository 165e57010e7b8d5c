//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/scholarhub/apiserver/config"
	"github.com/scholarhub/apiserver/internal/db"
	"github.com/scholarhub/apiserver/internal/server"
	"go.uber.org/zap"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestApplicationLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()
	applicant := fmt.Sprintf("applicant_%d@example.com", suffix)
	moderator := fmt.Sprintf("moderator_%d@example.com", suffix)

	for _, email := range []string{applicant, moderator} {
		status, _ := doJSON(t, http.MethodPost, baseURL+"/users/"+email, "", map[string]string{"name": email})
		if status != http.StatusCreated {
			t.Fatalf("sign in %s: status %d", email, status)
		}
	}
	if err := setRole(moderator, "moderator"); err != nil {
		t.Fatalf("promote moderator: %v", err)
	}

	applicantToken := issueToken(t, baseURL, applicant)
	moderatorToken := issueToken(t, baseURL, moderator)

	var created applicationResponse
	status, body := doJSON(t, http.MethodPost, baseURL+"/add-application", "", map[string]any{
		"applicantEmail":      applicant,
		"scholarshipId":       "7a6f2a8e-4a53-4c55-9f0b-1a4f8f4c2d11",
		"applicationDeadline": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"status":              "completed",
	})
	if status != http.StatusCreated {
		t.Fatalf("create application: status %d body %s", status, body)
	}
	mustDecode(t, body, &created)
	if created.Status != "pending" {
		t.Fatalf("expected pending application, got %q", created.Status)
	}

	statusURL := baseURL + "/application-status/" + created.ID
	if status, _ := doJSON(t, http.MethodPatch, statusURL, "", map[string]string{"status": "processing"}); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status, _ := doJSON(t, http.MethodPatch, statusURL, applicantToken, map[string]string{"status": "completed"}); status != http.StatusForbidden {
		t.Fatalf("expected 403 for applicant, got %d", status)
	}

	status, body = doJSON(t, http.MethodPatch, statusURL, moderatorToken, map[string]string{"status": "processing"})
	if status != http.StatusOK {
		t.Fatalf("transition: status %d body %s", status, body)
	}

	status, body = doJSON(t, http.MethodPatch, baseURL+"/add-feedback/"+created.ID, moderatorToken, map[string]string{"feedback": "Looks good"})
	if status != http.StatusOK {
		t.Fatalf("feedback: status %d body %s", status, body)
	}
	var withFeedback applicationResponse
	mustDecode(t, body, &withFeedback)
	if withFeedback.Status != "processing" || withFeedback.Feedback != "Looks good" {
		t.Fatalf("unexpected application after feedback: %+v", withFeedback)
	}

	status, body = doJSON(t, http.MethodGet, baseURL+"/my-applications/"+applicant, applicantToken, nil)
	if status != http.StatusOK {
		t.Fatalf("my applications: status %d body %s", status, body)
	}
	var mine []applicationResponse
	mustDecode(t, body, &mine)
	if len(mine) != 1 || mine[0].ID != created.ID {
		t.Fatalf("unexpected applications: %+v", mine)
	}

	today := time.Now().Format(time.DateOnly)
	status, body = doJSON(t, http.MethodGet, baseURL+"/all-applications?date="+today, "", nil)
	if status != http.StatusOK {
		t.Fatalf("all applications: status %d body %s", status, body)
	}
	var todays []applicationResponse
	mustDecode(t, body, &todays)
	if !containsApplication(todays, created.ID) {
		t.Fatalf("expected application %s in today's listing", created.ID)
	}

	if status, _ := doJSON(t, http.MethodGet, baseURL+"/application/not-an-id", applicantToken, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", status)
	}
}

type applicationResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func issueToken(t *testing.T, baseURL, email string) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/jwt", "", map[string]string{"email": email})
	if status != http.StatusOK {
		t.Fatalf("issue token: status %d body %s", status, body)
	}
	var parsed tokenResponse
	mustDecode(t, body, &parsed)
	if parsed.Token == "" {
		t.Fatalf("missing token in response")
	}
	return parsed.Token
}

func doJSON(t *testing.T, method, url, token string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, data
}

func mustDecode(t *testing.T, data []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("decode response %s: %v", data, err)
	}
}

func containsApplication(apps []applicationResponse, id string) bool {
	for _, app := range apps {
		if app.ID == id {
			return true
		}
	}
	return false
}

func setRole(email, role string) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx, "UPDATE users SET role = $1 WHERE email = $2", role, email)
	return err
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "scholarhub")
	_ = os.Setenv("DB_PASSWORD", "scholarhub")
	_ = os.Setenv("DB_NAME", "scholarhub")
	_ = os.Setenv("DB_SSL", "false")
	_ = os.Setenv("STORAGE_BACKEND", "none")
	_ = os.Setenv("MQ_BACKEND", "none")
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
