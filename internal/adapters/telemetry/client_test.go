package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const seriesBody = `{"data":{"allSeries":{"edges":[
  {"node":{"id":"2819695","events":[
    {"type":"kill","timestamp":"2024-05-01T12:00:03Z","position":{"x":0.25,"y":0.75},"player":{"name":"TenZ"}}
  ]}},
  {"node":{"id":"2819700","events":[]}},
  {"node":null}
]}}}`

func newTestServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientRecentSeries(t *testing.T) {
	Convey("Given a telemetry client", t, func() {
		ctx := context.Background()

		Convey("When the service returns series", func() {
			var gotAuth, gotMethod string
			var gotBody map[string]any
			server := newTestServer(t, http.StatusOK, seriesBody, func(r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotMethod = r.Method
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
			})
			c := NewClient(Config{Endpoint: server.URL, Token: "tok", Title: "valorant", SeriesLimit: 3})

			series, err := c.RecentSeries(ctx)

			Convey("Then the request should be an authenticated GraphQL POST", func() {
				So(err, ShouldBeNil)
				So(gotMethod, ShouldEqual, http.MethodPost)
				So(gotAuth, ShouldEqual, "Bearer tok")
				So(gotBody["query"], ShouldEqual, RecentSeriesEventsQuery)
				vars, _ := gotBody["variables"].(map[string]any)
				So(vars["title"], ShouldEqual, "valorant")
				So(vars["first"], ShouldEqual, float64(3))
			})

			Convey("Then null nodes should be skipped and events decoded", func() {
				So(series, ShouldHaveLength, 2)
				So(series[0].ID, ShouldEqual, "2819695")
				So(*series[0].Events[0].Player.Name, ShouldEqual, "TenZ")
				So(*series[0].Events[0].Position.X, ShouldEqual, 0.25)
				So(series[1].Events, ShouldBeEmpty)
			})
		})

		Convey("When the token is rejected", func() {
			server := newTestServer(t, http.StatusUnauthorized, `{}`, nil)
			_, err := NewClient(Config{Endpoint: server.URL, Token: "bad"}).RecentSeries(ctx)

			Convey("Then an AuthError should be returned", func() {
				var authErr *AuthError
				So(errors.As(err, &authErr), ShouldBeTrue)
				So(authErr.StatusCode, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When the service fails", func() {
			server := newTestServer(t, http.StatusBadGateway, `upstream down`, nil)
			_, err := NewClient(Config{Endpoint: server.URL, Token: "tok"}).RecentSeries(ctx)

			Convey("Then an HTTPError should carry the status and body", func() {
				var httpErr *HTTPError
				So(errors.As(err, &httpErr), ShouldBeTrue)
				So(httpErr.StatusCode, ShouldEqual, http.StatusBadGateway)
				So(httpErr.Body, ShouldEqual, "upstream down")
			})
		})

		Convey("When the response has GraphQL errors", func() {
			server := newTestServer(t, http.StatusOK, `{"errors":[{"message":"unknown title"}],"data":null}`, nil)
			_, err := NewClient(Config{Endpoint: server.URL, Token: "tok"}).RecentSeries(ctx)

			Convey("Then a GraphQLError should be returned", func() {
				var gqlErr *GraphQLError
				So(errors.As(err, &gqlErr), ShouldBeTrue)
				So(gqlErr.Error(), ShouldContainSubstring, "unknown title")
			})
		})

		Convey("When the envelope is incomplete", func() {
			for _, body := range []string{`{"data":null}`, `{"data":{}}`, `{"data":{"allSeries":{}}}`, `not json`} {
				server := newTestServer(t, http.StatusOK, body, nil)
				_, err := NewClient(Config{Endpoint: server.URL, Token: "tok"}).RecentSeries(ctx)
				So(errors.Is(err, ErrMalformedResponse), ShouldBeTrue)
			}
		})

		Convey("When checking configuration", func() {
			So(NewClient(Config{Endpoint: "http://x", Token: "t"}).Configured(), ShouldBeTrue)
			So(NewClient(Config{Endpoint: "http://x"}).Configured(), ShouldBeFalse)
			So(NewClient(Config{Token: "t"}).Configured(), ShouldBeFalse)

			var nilClient *Client
			So(nilClient.Configured(), ShouldBeFalse)
		})
	})
}
