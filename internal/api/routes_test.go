package api

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"
)

type fakeAuthenticator struct{}

func (fakeAuthenticator) Authenticate(r *http.Request) (int64, error) {
	return 1, nil
}

func newTestRouter() *mux.Router {
	r := mux.NewRouter()
	s := &Server{auth: fakeAuthenticator{}, hub: newHub()}
	registerRoutes(r, s)
	return r
}

func TestRoutesRegistered(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/status"},
		{"GET", "/ws"},
		{"POST", "/jobs"},
		{"GET", "/jobs/1"},
		{"GET", "/graph/some-repo"},
		{"GET", "/hover"},
		{"GET", "/references"},
		{"GET", "/hotspots"},
		{"GET", "/trend/some-file"},
	}

	for _, c := range cases {
		req, _ := http.NewRequest(c.method, c.path, nil)
		var match mux.RouteMatch
		if !router.Match(req, &match) {
			t.Errorf("missing route: %s %s", c.method, c.path)
		}
	}
}
