package server

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Version is reported by the welcome page.
var Version = "0.1"

func WelcomeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fmt.Fprintf(w, "Arbor (%s)\n", Version)
}
