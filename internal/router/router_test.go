package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"med-adherence-tracker/internal/domain/carelinks"
	"med-adherence-tracker/internal/router"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler, _ := router.NewRouter(router.Options{AuthVerifier: nil})
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_CaretakerScopes(t *testing.T) {
	ts := newTestServer(t)

	patientID := "patient-1"
	caretakerID := "caretaker-1"

	// 1) Paciente crea medicación
	medID := createMedication(t, ts.URL, patientID, map[string]any{
		"name":         "Metformin",
		"dosage":       "500mg",
		"frequency":    "Twice daily",
		"instructions": "with food",
	})

	// 2) Caretaker NO puede ver la medicación aún
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications/"+medID, caretakerID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before link, got %d", st)
		}
	}

	// 3) Paciente invita al caretaker con el paquete de monitoreo
	linkID := inviteCareLink(t, ts.URL, patientID, caretakerID, []string{
		string(carelinks.ScopeMedsRead),
		string(carelinks.ScopeLogsRead),
		string(carelinks.ScopeAdherenceRead),
		string(carelinks.ScopeFeedRead),
	})

	// 4) Caretaker ve su invitación
	{
		st, body := doReq(t, ts.URL, "GET", "/me/carelinks", caretakerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 listing my links, got %d body=%s", st, string(body))
		}
	}

	// 5) Caretaker acepta
	{
		st, body := doReq(t, ts.URL, "POST", "/carelinks/"+linkID+"/accept", caretakerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 accept link, got %d body=%s", st, string(body))
		}
	}

	// 6) Caretaker ya puede ver la medicación
	{
		st, body := doReq(t, ts.URL, "GET", "/medications/"+medID, caretakerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get medication by caretaker, got %d body=%s", st, string(body))
		}
	}

	// 7) Pero NO editarla (el paquete default no incluye meds:manage)
	{
		st, _ := doReq(t, ts.URL, "PATCH", "/medications/"+medID, caretakerID, map[string]any{
			"dosage": "850mg",
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 patch without meds:manage, got %d", st)
		}
	}

	// 8) Caretaker abre el feed antes de que haya tomas (queda mirando)
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/feed", caretakerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get feed, got %d body=%s", st, string(body))
		}
	}

	// 9) Paciente registra la toma de hoy
	today := time.Now().Format("2006-01-02")
	{
		st, body := doReq(t, ts.URL, "POST", "/medications/"+medID+"/logs", patientID, map[string]any{
			"date_taken": today,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 log intake, got %d body=%s", st, string(body))
		}
	}

	// 10) Caretaker puede listar los logs de la medicación
	{
		st, body := doReq(t, ts.URL, "GET", "/medications/"+medID+"/logs", caretakerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list logs by caretaker, got %d body=%s", st, string(body))
		}
	}

	// 11) Caretaker lee el reporte de adherencia
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/adherence", caretakerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 adherence report, got %d body=%s", st, string(body))
		}
		var rep struct {
			AdherenceRatePercent int `json:"adherence_rate_percent"`
			CurrentStreakDays    int `json:"current_streak_days"`
		}
		_ = json.Unmarshal(body, &rep)
		if rep.AdherenceRatePercent != 100 {
			t.Fatalf("expected 100%% adherence, got %d body=%s", rep.AdherenceRatePercent, string(body))
		}
		if rep.CurrentStreakDays != 1 {
			t.Fatalf("expected streak 1, got %d body=%s", rep.CurrentStreakDays, string(body))
		}
	}

	// 12) El refresh del feed levanta la toma como notificación
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/feed?refresh=1", caretakerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 feed refresh, got %d body=%s", st, string(body))
		}
		var feed struct {
			Items       []struct{ Message string } `json:"items"`
			UnreadCount int                        `json:"unread_count"`
		}
		_ = json.Unmarshal(body, &feed)
		if len(feed.Items) != 1 || feed.UnreadCount != 1 {
			t.Fatalf("expected 1 unread notification, got %s", string(body))
		}
	}

	// 13) Paciente revoca el link
	{
		st, body := doReq(t, ts.URL, "POST", "/carelinks/"+linkID+"/revoke", patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke link by patient, got %d body=%s", st, string(body))
		}
	}

	// 14) Caretaker pierde acceso inmediatamente
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications/"+medID, caretakerID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 get medication after revoke, got %d", st)
		}
	}
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/adherence", caretakerID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 adherence after revoke, got %d", st)
		}
	}
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/feed", caretakerID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 feed after revoke, got %d", st)
		}
	}
}

func TestHTTP_InviteCareLink_RejectsUnknownScope(t *testing.T) {
	ts := newTestServer(t)

	// scope inválido => 400
	st, _ := doReq(t, ts.URL, "POST", "/carelinks", "patient-1", map[string]any{
		"caretaker_user_id": "caretaker-1",
		"scopes":            []string{"logs:read", "logs:unknown"},
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scope, got %d", st)
	}
}

func TestHTTP_DeleteMedication_CascadesLogs(t *testing.T) {
	ts := newTestServer(t)
	patientID := "patient-1"

	medID := createMedication(t, ts.URL, patientID, map[string]any{
		"name":      "Aspirin",
		"dosage":    "100mg",
		"frequency": "Once daily",
	})

	today := time.Now().Format("2006-01-02")
	st, body := doReq(t, ts.URL, "POST", "/medications/"+medID+"/logs", patientID, map[string]any{
		"date_taken": today,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 log intake, got %d body=%s", st, string(body))
	}

	st, _ = doReq(t, ts.URL, "DELETE", "/medications/"+medID, patientID, nil)
	if st != http.StatusNoContent {
		t.Fatalf("expected 204 delete medication, got %d", st)
	}

	st, body = doReq(t, ts.URL, "GET", "/logs?date="+today, patientID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list logs, got %d", st)
	}
	var logs []map[string]any
	_ = json.Unmarshal(body, &logs)
	if len(logs) != 0 {
		t.Fatalf("expected logs cascaded on delete, got %s", string(body))
	}
}

func TestHTTP_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	// sin X-Debug-User-ID ni token => 401
	st, _ := doReq(t, ts.URL, "GET", "/medications", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", st)
	}
}

func createMedication(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/medications", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medication, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create medication: missing id body=%s", string(body))
	}
	return resp.ID
}

func inviteCareLink(t *testing.T, baseURL, patientID, caretakerID string, scopes []string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/carelinks", patientID, map[string]any{
		"caretaker_user_id": caretakerID,
		"scopes":            scopes,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 invite care link, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("invite care link: missing id body=%s", string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
