package handler

import (
	"net/http"

	"estate-backend/bootstrap"
)

var serverless http.Handler

func init() {
	app, err := bootstrap.New()
	if err != nil {
		panic("app create: " + err.Error())
	}
	serverless = bootstrap.Handler(app)
}

// Handler is the serverless entry point. All requests are rewritten here.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()
	serverless.ServeHTTP(w, r)
}
