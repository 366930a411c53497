package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"cadenza/internal/config"
	"cadenza/internal/release"
)

func newTestServer(t *testing.T) *CatalogServer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Releases.Root = t.TempDir()
	cfg.Releases.WatchForChanges = false
	cfg.Logging.RequestLogging = false

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	store, err := release.NewStore(cfg.Releases.Root, logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cs, err := NewCatalogServer(cfg, store, logger)
	if err != nil {
		t.Fatalf("NewCatalogServer failed: %v", err)
	}
	return cs
}

func doRequest(t *testing.T, cs *CatalogServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	cs.Handler().ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, cs *CatalogServer, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, cs, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, parsed
}

// makeWAV builds a minimal zero-filled PCM WAV of the given length.
func makeWAV(sampleRate, seconds int) []byte {
	dataSize := sampleRate * seconds // 8-bit mono

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(8))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

// uploadFiles posts a multipart upload for the release, one part per
// filename/content pair.
func uploadFiles(t *testing.T, cs *CatalogServer, query string, files map[string][]byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload?"+query, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := doRequest(t, cs, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		json.Unmarshal(rec.Body.Bytes(), &parsed)
	}
	return rec, parsed
}

func TestUploadAndFetchRelease(t *testing.T) {
	cs := newTestServer(t)

	rec, resp := uploadFiles(t, cs, "releaseId=my-track&artist=DJ+Test&title=Anthem&genre=House", map[string][]byte{
		"track.wav": makeWAV(8000, 210),
		"cover.png": []byte("png-bytes"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp["versionId"] != "primary" {
		t.Errorf("versionId = %v, want primary", resp["versionId"])
	}
	if resp["artist"] != "DJ Test" {
		t.Errorf("artist = %v, want DJ Test", resp["artist"])
	}

	validations := resp["audioValidation"].([]any)
	if len(validations) != 1 {
		t.Fatalf("audioValidation length = %d, want 1", len(validations))
	}
	if duration := validations[0].(map[string]any)["duration"]; duration != float64(210) {
		t.Errorf("validated duration = %v, want 210", duration)
	}

	rec, resp = doJSON(t, cs, http.MethodGet, "/releases/my-track", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	doc := resp["release"].(map[string]any)

	versions := doc["versions"].(map[string]any)
	primary := versions["primary"].(map[string]any)
	audio := primary["files"].(map[string]any)["audio"].([]any)
	if len(audio) != 1 {
		t.Fatalf("audio descriptors = %d, want 1", len(audio))
	}
	if audio[0].(map[string]any)["filename"] != "track.wav" {
		t.Errorf("filename = %v, want track.wav", audio[0].(map[string]any)["filename"])
	}

	counts := doc["fileCounts"].(map[string]any)
	if counts["audio"] != float64(1) {
		t.Errorf("fileCounts.audio = %v, want 1", counts["audio"])
	}
	if counts["artwork"] != float64(1) {
		t.Errorf("fileCounts.artwork = %v, want 1", counts["artwork"])
	}
}

func TestUploadDuplicateVersionConflict(t *testing.T) {
	cs := newTestServer(t)

	rec, _ := uploadFiles(t, cs, "releaseId=my-track", map[string][]byte{
		"track.wav": makeWAV(8000, 120),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("first upload status = %d", rec.Code)
	}

	rec, resp := uploadFiles(t, cs, "releaseId=my-track", map[string][]byte{
		"replacement.wav": makeWAV(8000, 60),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate upload status = %d, want 409", rec.Code)
	}
	if resp["error"] != "Duplicate version detected" {
		t.Errorf("error = %v", resp["error"])
	}

	// Different version name goes through.
	rec, _ = uploadFiles(t, cs, "releaseId=my-track&versionName=Extended+Mix", map[string][]byte{
		"track-extended.wav": makeWAV(8000, 240),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second version upload status = %d", rec.Code)
	}
}

func TestUploadRejectsInvalidAudio(t *testing.T) {
	cs := newTestServer(t)

	rec, resp := uploadFiles(t, cs, "releaseId=my-track", map[string][]byte{
		"marathon.wav": makeWAV(1, 7200), // two hours via a 1 Hz header
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
	}
	if resp["error"] != "Audio file validation failed" {
		t.Errorf("error = %v", resp["error"])
	}
	if reason, _ := resp["reason"].(string); !strings.Contains(reason, "expected 1s - 1 hour") {
		t.Errorf("reason = %v", resp["reason"])
	}

	// The rejected file must not be left on disk.
	audioDir := cs.store.VersionAudioDir("my-track", "primary")
	if entries, err := os.ReadDir(audioDir); err == nil && len(entries) > 0 {
		t.Error("rejected audio file left behind")
	}
}

func TestUploadRequiresReleaseID(t *testing.T) {
	cs := newTestServer(t)

	rec, _ := uploadFiles(t, cs, "", map[string][]byte{"track.wav": makeWAV(8000, 10)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMetadataSaveAndList(t *testing.T) {
	cs := newTestServer(t)

	rec, _ := doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{
		"releaseId": "flat-release",
		"artist":    "Flat Artist",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("flat save status = %d", rec.Code)
	}

	// Legacy wrapped body still accepted.
	rec, _ = doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{
		"releaseId": "wrapped-release",
		"metadata": map[string]any{
			"releaseId": "wrapped-release",
			"artist":    "Wrapped Artist",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("wrapped save status = %d", rec.Code)
	}

	rec, resp := doJSON(t, cs, http.MethodGet, "/releases", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}

	// The wrapped body is persisted flat.
	rec, resp = doJSON(t, cs, http.MethodGet, "/releases/wrapped-release", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	doc := resp["release"].(map[string]any)
	if _, wrapped := doc["metadata"]; wrapped {
		t.Error("wrapped shape persisted")
	}
	if doc["artist"] != "Wrapped Artist" {
		t.Errorf("artist = %v", doc["artist"])
	}

	rec, _ = doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"artist": "No ID"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing releaseId status = %d, want 400", rec.Code)
	}
}

func TestGetMissingRelease(t *testing.T) {
	cs := newTestServer(t)

	rec, resp := doJSON(t, cs, http.MethodGet, "/releases/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp["error"] != "Release not found" {
		t.Errorf("error = %v", resp["error"])
	}
}

func TestDeleteRelease(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "doomed", "artist": "A"})

	rec, _ := doJSON(t, cs, http.MethodDelete, "/releases/doomed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, _ = doJSON(t, cs, http.MethodDelete, "/releases/doomed", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDistributionLifecycle(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})

	// Submit to a label.
	rec, resp := doJSON(t, cs, http.MethodPatch, "/releases/my-track/distribution", map[string]any{
		"path":  "submit",
		"entry": map[string]any{"platform": "Email", "label": "Monstercat", "status": "pending"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	if msg, _ := resp["message"].(string); msg != "Added Email to submit" {
		t.Errorf("message = %q", msg)
	}

	// Logging the same submission again updates instead of duplicating.
	rec, resp = doJSON(t, cs, http.MethodPatch, "/releases/my-track/distribution", map[string]any{
		"path":  "submit",
		"entry": map[string]any{"platform": "Email", "label": "Monstercat", "status": "followed up"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resubmit status = %d", rec.Code)
	}
	if msg, _ := resp["message"].(string); msg != "Updated Email in submit" {
		t.Errorf("message = %q", msg)
	}
	submit := resp["distribution"].(map[string]any)["submit"].([]any)
	if len(submit) != 1 {
		t.Fatalf("submit entries = %d, want 1", len(submit))
	}

	// Sign with the label.
	rec, resp = doJSON(t, cs, http.MethodPatch, "/releases/my-track/sign", map[string]any{
		"labelName": "Monstercat",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign status = %d, body %s", rec.Code, rec.Body.String())
	}
	info := resp["labelInfo"].(map[string]any)
	if info["isSigned"] != true {
		t.Error("labelInfo.isSigned not set")
	}
	if info["label"] != "Monstercat" {
		t.Errorf("labelInfo.label = %v", info["label"])
	}

	rec, resp = doJSON(t, cs, http.MethodGet, "/releases/my-track", nil)
	doc := resp["release"].(map[string]any)
	entry := doc["distribution"].(map[string]any)["submit"].([]any)[0].(map[string]any)
	if entry["status"] != "signed" {
		t.Errorf("submit status = %v, want signed", entry["status"])
	}

	// Deleting the signed submission resets label info. The entry's
	// timestamp is still a valid lookup key.
	timestamp := entry["timestamp"].(string)
	rec, resp = doJSON(t, cs, http.MethodDelete, "/releases/my-track/distribution/submit/"+timestamp, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete entry status = %d, body %s", rec.Code, rec.Body.String())
	}
	info = resp["labelInfo"].(map[string]any)
	if info["isSigned"] != false {
		t.Error("labelInfo not reset after deleting signed submission")
	}
}

func TestDistributionEditEntry(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})
	_, resp := doJSON(t, cs, http.MethodPatch, "/releases/my-track/distribution", map[string]any{
		"path":  "promote",
		"entry": map[string]any{"platform": "TikTok", "status": "draft"},
	})
	entry := resp["distribution"].(map[string]any)["promote"].([]any)[0].(map[string]any)
	entryID := entry["entryId"].(string)

	rec, resp := doJSON(t, cs, http.MethodPatch, "/releases/my-track/distribution/promote/"+entryID, map[string]any{
		"status": "posted",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", rec.Code, rec.Body.String())
	}
	edited := resp["distribution"].(map[string]any)["promote"].([]any)[0].(map[string]any)
	if edited["status"] != "posted" {
		t.Errorf("status = %v, want posted", edited["status"])
	}
	if edited["entryId"] != entryID {
		t.Error("entryId changed on edit")
	}

	rec, _ = doJSON(t, cs, http.MethodPatch, "/releases/my-track/distribution/promote/no-such-key", map[string]any{
		"status": "posted",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", rec.Code)
	}
}

func TestDistributionValidation(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})

	rec, _ := doJSON(t, cs, http.MethodPatch, "/releases/my-track/distribution", map[string]any{
		"path":  "archive",
		"entry": map[string]any{"platform": "X"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid path status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, cs, http.MethodPatch, "/releases/my-track/distribution", map[string]any{
		"path":  "submit",
		"entry": map[string]any{"platform": "Email"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing label status = %d, want 400", rec.Code)
	}
}

func TestSongLinks(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})

	rec, resp := doJSON(t, cs, http.MethodPost, "/releases/my-track/song-links", map[string]any{
		"platform": "Spotify",
		"url":      "https://open.spotify.com/track/abc",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add link status = %d, body %s", rec.Code, rec.Body.String())
	}
	link := resp["link"].(map[string]any)
	linkID, _ := link["linkId"].(string)
	if linkID == "" {
		t.Fatal("link has no linkId")
	}

	rec, resp = doJSON(t, cs, http.MethodDelete, "/releases/my-track/song-links/"+linkID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete link status = %d", rec.Code)
	}
	if links := resp["songLinks"].([]any); len(links) != 0 {
		t.Errorf("songLinks length = %d, want 0", len(links))
	}

	rec, _ = doJSON(t, cs, http.MethodDelete, "/releases/my-track/song-links/"+linkID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestNotes(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})

	rec, resp := doJSON(t, cs, http.MethodPut, "/releases/my-track/notes", map[string]any{
		"text": "master needs a limiter pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save notes status = %d, body %s", rec.Code, rec.Body.String())
	}
	notes := resp["notes"].(map[string]any)
	if notes["text"] != "master needs a limiter pass" {
		t.Errorf("text = %v", notes["text"])
	}
	if updatedAt, _ := notes["updatedAt"].(string); updatedAt == "" {
		t.Error("notes.updatedAt not stamped")
	}
}

func TestFileDownload(t *testing.T) {
	cs := newTestServer(t)

	wavContent := makeWAV(8000, 30)
	rec, _ := uploadFiles(t, cs, "releaseId=my-track", map[string][]byte{
		"track.wav": wavContent,
		"cover.png": []byte("png-bytes"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}

	// Audio resolves through the per-version directories.
	req := httptest.NewRequest(http.MethodGet, "/releases/my-track/files/audio/track.wav", nil)
	rec = doRequest(t, cs, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("audio download status = %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), wavContent) {
		t.Error("downloaded audio differs from upload")
	}

	req = httptest.NewRequest(http.MethodGet, "/releases/my-track/files/artwork/cover.png", nil)
	rec = doRequest(t, cs, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "png-bytes" {
		t.Errorf("artwork download status = %d", rec.Code)
	}

	// The convenience endpoint serves the first artwork image.
	req = httptest.NewRequest(http.MethodGet, "/releases/my-track/artwork", nil)
	rec = doRequest(t, cs, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "png-bytes" {
		t.Errorf("artwork endpoint status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/releases/my-track/files/audio/ghost.wav", nil)
	rec = doRequest(t, cs, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", rec.Code)
	}
}

func TestSoundCloudPackage(t *testing.T) {
	cs := newTestServer(t)

	rec, _ := uploadFiles(t, cs, "releaseId=my-track&artist=A&title=T&genre=House", map[string][]byte{
		"track.wav": makeWAV(8000, 90),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec, resp := doJSON(t, cs, http.MethodPost, "/distribute/soundcloud/package?releaseId=my-track&privacy=private", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("package status = %d, body %s", rec.Code, rec.Body.String())
	}
	packagePath, _ := resp["packagePath"].(string)
	if packagePath == "" {
		t.Fatal("no packagePath in response")
	}
	if _, err := os.Stat(filepath.Join(cs.store.Root(), packagePath)); err != nil {
		t.Errorf("package file missing: %v", err)
	}

	// The generation is logged on the release path.
	releaseList := resp["distribution"].(map[string]any)["release"].([]any)
	if len(releaseList) != 1 {
		t.Fatalf("release entries = %d, want 1", len(releaseList))
	}
	entry := releaseList[0].(map[string]any)
	if entry["platform"] != "SoundCloud" || entry["status"] != "Package Generated" {
		t.Errorf("unexpected entry %v", entry)
	}

	// The bundle is downloadable through the packages endpoint.
	name := filepath.Base(packagePath)
	req := httptest.NewRequest(http.MethodGet, "/releases/my-track/packages/"+name, nil)
	rec = doRequest(t, cs, req)
	if rec.Code != http.StatusOK {
		t.Errorf("package download status = %d", rec.Code)
	}

	// No audio for the requested version.
	rec, _ = doJSON(t, cs, http.MethodPost, "/distribute/soundcloud/package?releaseId=my-track&versionId=ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing version status = %d, want 404", rec.Code)
	}
}

func TestStorageStatus(t *testing.T) {
	cs := newTestServer(t)

	rec, resp := doJSON(t, cs, http.MethodGet, "/storage/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	disk, ok := resp["disk"].(map[string]any)
	if !ok {
		t.Fatal("no disk figures in response")
	}
	if total, _ := disk["totalGB"].(float64); total <= 0 {
		t.Errorf("totalGB = %v, want > 0", disk["totalGB"])
	}
	if resp["releasesPath"] != cs.store.Root() {
		t.Errorf("releasesPath = %v", resp["releasesPath"])
	}
}

func TestHealthCheck(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := doRequest(t, cs, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	var health HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
	if health.Releases != 1 {
		t.Errorf("releaseCount = %d, want 1", health.Releases)
	}
}

func TestCORSPreflight(t *testing.T) {
	cs := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/releases", nil)
	rec := doRequest(t, cs, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS origin header missing")
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "PATCH") {
		t.Errorf("PATCH missing from allowed methods: %q", methods)
	}
}

func TestLabelDealContact(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})

	rec, resp := doJSON(t, cs, http.MethodPut, "/releases/my-track/label-deal/contact", map[string]any{
		"name":  "A&R Person",
		"email": "anr@label.example",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save contact status = %d, body %s", rec.Code, rec.Body.String())
	}
	contact := resp["labelInfo"].(map[string]any)["contact"].(map[string]any)
	if contact["email"] != "anr@label.example" {
		t.Errorf("contact = %v", contact)
	}

	rec, resp = doJSON(t, cs, http.MethodDelete, "/releases/my-track/label-deal/contact", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete contact status = %d", rec.Code)
	}
	if resp["labelInfo"].(map[string]any)["contact"] != nil {
		t.Error("contact not cleared")
	}
}

func TestLabelDealFiles(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("files", "contract.pdf")
	part.Write([]byte("pdf-bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/releases/my-track/label-deal/files", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := doRequest(t, cs, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("contract upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	documents := resp["labelInfo"].(map[string]any)["contractDocuments"].([]any)
	if len(documents) != 1 {
		t.Fatalf("contractDocuments = %d, want 1", len(documents))
	}
	if documents[0].(map[string]any)["filename"] != "contract.pdf" {
		t.Errorf("descriptor = %v", documents[0])
	}

	req = httptest.NewRequest(http.MethodGet, "/releases/my-track/label-deal/files/contract.pdf", nil)
	rec = doRequest(t, cs, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pdf-bytes" {
		t.Errorf("contract download status = %d", rec.Code)
	}

	rec, resp = doJSON(t, cs, http.MethodDelete, "/releases/my-track/label-deal/files/contract.pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("contract delete status = %d", rec.Code)
	}
	if documents := resp["labelInfo"].(map[string]any)["contractDocuments"].([]any); len(documents) != 0 {
		t.Errorf("contractDocuments = %d after delete, want 0", len(documents))
	}
}

func TestUnknownResource(t *testing.T) {
	cs := newTestServer(t)

	doJSON(t, cs, http.MethodPost, "/metadata", map[string]any{"releaseId": "my-track", "artist": "A"})

	rec, _ := doJSON(t, cs, http.MethodGet, "/releases/my-track/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDistributionOnMissingRelease(t *testing.T) {
	cs := newTestServer(t)

	rec, _ := doJSON(t, cs, http.MethodPatch, "/releases/ghost/distribution", map[string]any{
		"path":  "promote",
		"entry": map[string]any{"platform": "TikTok"},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
