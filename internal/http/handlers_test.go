package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/database"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/engine"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/service"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	log := zerolog.Nop()
	repos := repository.New(db, repository.BreakerSettings{})
	clk := clock.NewFake(time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC))
	registry := engine.NewRegistry(repos, clk, log)
	ledger := engine.NewLedger(repos)
	svcs := service.New(service.Deps{
		Repos:    repos,
		Registry: registry,
		Ledger:   ledger,
		Enforcer: engine.NewEnforcer(repos, registry, ledger, log),
		Clock:    clk,
		Log:      log,
	}, service.Settings{EnergyRate: 6, DefaultPolicyThresholdKWh: 2, UsageMediumKWh: 0.5, UsageHighKWh: 1.5, PeakDeviceKWh: 2.5, PeakUserKWh: 2})

	app := fiber.New()
	Register(app, svcs, log)
	return app
}

type caller struct {
	id    int64
	admin bool
}

var adminCaller = caller{id: 1, admin: true}

func do(t *testing.T, app *fiber.App, who *caller, method, path string, payload interface{}) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set(HeaderUserID, strconv.FormatInt(who.id, 10))
		if who.admin {
			req.Header.Set(HeaderUserRole, "admin")
		}
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func createUser(t *testing.T, app *fiber.App, name string) caller {
	t.Helper()
	status, body := do(t, app, &adminCaller, "POST", "/admin/users", map[string]string{"name": name, "email": name + "@example.com"})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", status, body)
	}
	var u domain.User
	if err := json.Unmarshal(body, &u); err != nil {
		t.Fatalf("Failed to unmarshal user: %v", err)
	}
	return caller{id: u.ID}
}

func createDevice(t *testing.T, app *fiber.App, owner caller, name string) domain.Device {
	t.Helper()
	status, body := do(t, app, &owner, "POST", "/devices", map[string]interface{}{"name": name, "power_rating": 1200})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", status, body)
	}
	var d domain.Device
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatalf("Failed to unmarshal device: %v", err)
	}
	return d
}

func TestHealth(t *testing.T) {
	app := setupTestApp(t)
	status, body := do(t, app, nil, "GET", "/health", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, body)
	}
}

func TestIdentityHeaders(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name           string
		userID         string
		expectedStatus int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"not a number", "abc", fiber.StatusUnauthorized},
		{"negative", "-4", fiber.StatusUnauthorized},
		{"valid", "7", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/devices", nil)
			if tt.userID != "" {
				req.Header.Set(HeaderUserID, tt.userID)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}
		})
	}
}

func TestDeviceEndpoints(t *testing.T) {
	app := setupTestApp(t)
	alice := createUser(t, app, "alice")
	bob := createUser(t, app, "bob")
	d := createDevice(t, app, alice, "heater")
	path := "/devices/" + strconv.FormatInt(d.ID, 10)

	status, body := do(t, app, &alice, "POST", "/devices", map[string]interface{}{"name": "", "power_rating": 10})
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for blank name, got %d: %s", status, body)
	}

	status, _ = do(t, app, &bob, "POST", path+"/toggle", nil)
	if status != fiber.StatusForbidden {
		t.Errorf("Expected status 403, got %d", status)
	}

	status, body = do(t, app, &alice, "POST", path+"/toggle", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, body)
	}
	var toggled domain.Device
	if err := json.Unmarshal(body, &toggled); err != nil {
		t.Fatalf("Failed to unmarshal device: %v", err)
	}
	if !toggled.Status {
		t.Error("Expected device to be on")
	}

	status, body = do(t, app, &alice, "GET", "/devices", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, body)
	}
	var listing struct {
		Devices []service.DeviceView `json:"devices"`
		Counts  service.DeviceCounts `json:"counts"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		t.Fatalf("Failed to unmarshal listing: %v", err)
	}
	if len(listing.Devices) != 1 || listing.Counts.Active != 1 {
		t.Errorf("Unexpected listing %+v", listing)
	}
	if listing.Devices[0].UsageLevel != domain.UsageLow {
		t.Errorf("Expected LOW usage level, got %s", listing.Devices[0].UsageLevel)
	}

	status, body = do(t, app, &alice, "GET", path+"/energy/today", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, body)
	}
	status, _ = do(t, app, &bob, "GET", "/users/"+strconv.FormatInt(alice.id, 10)+"/energy/today", nil)
	if status != fiber.StatusForbidden {
		t.Errorf("Expected status 403, got %d", status)
	}

	status, _ = do(t, app, &alice, "DELETE", path, nil)
	if status != fiber.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", status)
	}
	status, _ = do(t, app, &alice, "DELETE", path, nil)
	if status != fiber.StatusNotFound {
		t.Errorf("Expected status 404, got %d", status)
	}
	status, _ = do(t, app, &alice, "POST", "/devices/abc/toggle", nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for bad id, got %d", status)
	}
}

func TestScheduleEndpoints(t *testing.T) {
	app := setupTestApp(t)
	alice := createUser(t, app, "alice")
	d := createDevice(t, app, alice, "pump")

	status, body := do(t, app, &alice, "POST", "/schedules", map[string]interface{}{"device_id": d.ID})
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 without times, got %d: %s", status, body)
	}

	status, body = do(t, app, &alice, "POST", "/schedules", map[string]interface{}{"device_id": d.ID, "on_time": "07:00", "off_time": "09:00"})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", status, body)
	}
	var sc domain.Schedule
	if err := json.Unmarshal(body, &sc); err != nil {
		t.Fatalf("Failed to unmarshal schedule: %v", err)
	}
	if sc.OnTime == nil || sc.OnTime.String() != "07:00" {
		t.Errorf("Expected on time 07:00, got %v", sc.OnTime)
	}

	path := "/schedules/" + strconv.FormatInt(sc.ID, 10)
	status, body = do(t, app, &alice, "POST", path+"/toggle", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, body)
	}
	status, _ = do(t, app, &alice, "DELETE", path, nil)
	if status != fiber.StatusNoContent {
		t.Errorf("Expected status 204, got %d", status)
	}

	status, body = do(t, app, &alice, "GET", "/schedules", nil)
	if status != fiber.StatusOK || string(body) != "[]" {
		t.Errorf("Expected empty list, got %d: %s", status, body)
	}
}

func TestPolicyEndpoints(t *testing.T) {
	app := setupTestApp(t)
	alice := createUser(t, app, "alice")

	status, _ := do(t, app, &alice, "POST", "/admin/policies", map[string]interface{}{"name": "p", "start_time": "00:00", "end_time": "23:59"})
	if status != fiber.StatusForbidden {
		t.Errorf("Expected status 403, got %d", status)
	}

	status, body := do(t, app, &adminCaller, "POST", "/admin/policies", map[string]interface{}{"name": "p", "start_time": "18:00", "end_time": "06:00"})
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", status, body)
	}

	status, body = do(t, app, &adminCaller, "POST", "/admin/policies", map[string]interface{}{"name": "all day", "start_time": "00:00", "end_time": "23:59", "threshold_kwh": 1.5})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", status, body)
	}
	var p domain.Policy
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("Failed to unmarshal policy: %v", err)
	}

	status, body = do(t, app, &adminCaller, "GET", "/admin/policies/status", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, body)
	}
	var active struct {
		IDs []int64 `json:"active_policy_ids"`
	}
	if err := json.Unmarshal(body, &active); err != nil {
		t.Fatalf("Failed to unmarshal status: %v", err)
	}
	if len(active.IDs) != 1 || active.IDs[0] != p.ID {
		t.Errorf("Expected [%d], got %v", p.ID, active.IDs)
	}

	status, _ = do(t, app, &adminCaller, "POST", "/admin/policies/"+strconv.FormatInt(p.ID, 10)+"/toggle", nil)
	if status != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
	status, body = do(t, app, &adminCaller, "GET", "/admin/policies/logs", nil)
	if status != fiber.StatusOK || string(body) != "[]" {
		t.Errorf("Expected empty log, got %d: %s", status, body)
	}
}

func TestAdminEndpoints(t *testing.T) {
	app := setupTestApp(t)
	createUser(t, app, "alice")

	status, body := do(t, app, &adminCaller, "GET", "/admin/analytics", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, body)
	}
	var a service.Analytics
	if err := json.Unmarshal(body, &a); err != nil {
		t.Fatalf("Failed to unmarshal analytics: %v", err)
	}
	if len(a.Daily) != 7 {
		t.Errorf("Expected 7 daily entries, got %d", len(a.Daily))
	}

	status, _ = do(t, app, &adminCaller, "POST", "/admin/exports/usage", nil)
	if status != fiber.StatusServiceUnavailable {
		t.Errorf("Expected status 503 without an uploader, got %d", status)
	}

	status, body = do(t, app, &adminCaller, "POST", "/admin/users", map[string]string{"name": "x", "email": "bad"})
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", status, body)
	}
}
