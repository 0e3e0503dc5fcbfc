package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"studioops/internal/domain"
)

func happyCredentials() *fakeCredentials {
	return &fakeCredentials{cred: &domain.StorageCredential{
		TenantID:    "tenant-1",
		Provider:    ProviderTag,
		AccessToken: "token",
	}}
}

func jsonServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h(w, r)
			return
		}
		t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
}

func TestSaveURLTaggedResponses(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantTag  SaveURLTag
		wantPath string
		wantJob  string
	}{
		{
			name:     "complete with metadata",
			body:     `{".tag":"complete","path_display":"/Videos/final.mp4","path_lower":"/videos/final.mp4"}`,
			wantTag:  SaveURLComplete,
			wantPath: "/Videos/final.mp4",
		},
		{
			name:    "async job id",
			body:    `{".tag":"async_job_id","async_job_id":"job-123"}`,
			wantTag: SaveURLAsyncJob,
			wantJob: "job-123",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := jsonServer(t, map[string]http.HandlerFunc{
				"/2/files/save_url": func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(tc.body))
				},
			})
			defer server.Close()
			client := newTestClient(t, server, happyCredentials())

			result, err := client.SaveURL(context.Background(), "tenant-1", "/Videos/final.mp4", "https://cdn.example.com/v.mp4")
			if err != nil {
				t.Fatalf("SaveURL: %v", err)
			}
			if result.Tag != tc.wantTag || result.Path != tc.wantPath || result.AsyncJobID != tc.wantJob {
				t.Fatalf("result = %+v", result)
			}
		})
	}
}

func TestCheckSaveURLJobStatuses(t *testing.T) {
	bodies := []string{
		`{".tag":"in_progress"}`,
		`{".tag":"complete","path_display":"/Videos/final.mp4"}`,
		`{".tag":"failed","error":{".tag":"download_failed"}}`,
	}
	idx := 0
	server := jsonServer(t, map[string]http.HandlerFunc{
		"/2/files/save_url/check_job_status": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(bodies[idx]))
			idx++
		},
	})
	defer server.Close()
	client := newTestClient(t, server, happyCredentials())

	first, err := client.CheckSaveURLJob(context.Background(), "tenant-1", "job-123")
	if err != nil || first.Tag != SaveURLInProgress {
		t.Fatalf("first poll = %+v, %v", first, err)
	}
	second, err := client.CheckSaveURLJob(context.Background(), "tenant-1", "job-123")
	if err != nil || second.Tag != SaveURLComplete || second.Path != "/Videos/final.mp4" {
		t.Fatalf("second poll = %+v, %v", second, err)
	}
	third, err := client.CheckSaveURLJob(context.Background(), "tenant-1", "job-123")
	if err != nil || third.Tag != SaveURLFailed || third.Reason != "download_failed" {
		t.Fatalf("third poll = %+v, %v", third, err)
	}
}

func TestCreateFolderToleratesConflict(t *testing.T) {
	server := jsonServer(t, map[string]http.HandlerFunc{
		"/2/files/create_folder_v2": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error_summary":"path/conflict/folder/..","error":{".tag":"path"}}`))
		},
	})
	defer server.Close()
	client := newTestClient(t, server, happyCredentials())

	if err := client.CreateFolder(context.Background(), "tenant-1", "/Gallery/AI Videos"); err != nil {
		t.Fatalf("conflict should be tolerated as success, got %v", err)
	}
}

func TestCreateSharedLinkAlreadyExists(t *testing.T) {
	server := jsonServer(t, map[string]http.HandlerFunc{
		"/2/sharing/create_shared_link_with_settings": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error_summary":"shared_link_already_exists/..","error":{".tag":"shared_link_already_exists"}}`))
		},
	})
	defer server.Close()
	client := newTestClient(t, server, happyCredentials())

	_, err := client.CreateSharedLink(context.Background(), "tenant-1", "/Videos/final.mp4")
	if !errors.Is(err, ErrSharedLinkExists) {
		t.Fatalf("err = %v, want ErrSharedLinkExists", err)
	}
}

func TestListSharedLinks(t *testing.T) {
	server := jsonServer(t, map[string]http.HandlerFunc{
		"/2/sharing/list_shared_links": func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Path string `json:"path"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Path != "/Videos/final.mp4" {
				t.Errorf("list path = %q", req.Path)
			}
			_, _ = w.Write([]byte(`{"links":[{"url":"https://share.example.com/existing"}]}`))
		},
	})
	defer server.Close()
	client := newTestClient(t, server, happyCredentials())

	links, err := client.ListSharedLinks(context.Background(), "tenant-1", "/Videos/final.mp4")
	if err != nil {
		t.Fatalf("ListSharedLinks: %v", err)
	}
	if len(links) != 1 || links[0] != "https://share.example.com/existing" {
		t.Fatalf("links = %v", links)
	}
}

func TestThumbnailSendsAPIArgHeader(t *testing.T) {
	server := jsonServer(t, map[string]http.HandlerFunc{
		"/2/files/get_thumbnail_v2": func(w http.ResponseWriter, r *http.Request) {
			arg := r.Header.Get("Dropbox-API-Arg")
			var decoded struct {
				Resource struct {
					Path string `json:"path"`
				} `json:"resource"`
				Size struct {
					Tag string `json:".tag"`
				} `json:"size"`
			}
			if err := json.Unmarshal([]byte(arg), &decoded); err != nil {
				t.Errorf("bad api arg: %v", err)
			}
			if decoded.Resource.Path != "/a.jpg" || decoded.Size.Tag != "w640h480" {
				t.Errorf("api arg = %s", arg)
			}
			_, _ = w.Write([]byte("jpeg-bytes"))
		},
	})
	defer server.Close()
	client := newTestClient(t, server, happyCredentials())

	data, err := client.Thumbnail(context.Background(), "tenant-1", "/a.jpg", "w640h480")
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("data = %q", data)
	}
}
