package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"darkQuestsAPI/services"
)

const requestTimeout = 5 * time.Second

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps service errors onto HTTP statuses. Persistence
// failures are logged and reported without internal detail.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var persistence *services.PersistenceError
	switch {
	case services.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyOwned):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInsufficientFunds):
		respondWithError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, services.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &persistence):
		log.Printf("Persistence failure: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Could not save your progress, please try again")
	default:
		log.Printf("Unexpected error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
