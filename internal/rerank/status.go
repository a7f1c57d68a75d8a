package rerank

import (
	"net/http"
	"strings"
	"time"
)

// ServiceStatus reports whether a reranker endpoint is reachable. The
// workbench only probes; starting and stopping the service belongs to the
// deployment.
type ServiceStatus struct {
	Name        string `json:"name"`
	Endpoint    string `json:"endpoint"`
	Ready       bool   `json:"ready"`
	Detail      string `json:"detail"`
	InstallHint string `json:"install_hint,omitempty"`
}

func ProbeOllama(baseURL string, timeout time.Duration) ServiceStatus {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	url := tagsEndpoint(baseURL)
	status := ServiceStatus{Name: "ollama", Endpoint: url}
	if isHTTPAlive(url, timeout) {
		status.Ready = true
		status.Detail = "endpoint reachable"
		return status
	}
	status.Detail = "endpoint unreachable"
	status.InstallHint = "Install Ollama from https://ollama.com and run: ollama serve"
	return status
}

// WaitForOllama polls until the endpoint answers or the window closes, then
// returns a final probe either way.
func WaitForOllama(baseURL string, wait time.Duration) ServiceStatus {
	url := tagsEndpoint(baseURL)
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if isHTTPAlive(url, 2*time.Second) {
			break
		}
		time.Sleep(900 * time.Millisecond)
	}
	return ProbeOllama(baseURL, 2*time.Second)
}

func tagsEndpoint(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "http://127.0.0.1:11434"
	}
	base = strings.TrimSuffix(base, "/api/generate")
	return strings.TrimSuffix(base, "/") + "/api/tags"
}

func isHTTPAlive(url string, timeout time.Duration) bool {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}
