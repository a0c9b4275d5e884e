package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
)

var validate = validator.New()

// DataHandler exposes CRUD over the imported flight and fuel records.
type DataHandler struct {
	flightStorage interfaces.FlightStorage
	fuelStorage   interfaces.FuelStorage
	logger        arbor.ILogger
}

func NewDataHandler(flightStorage interfaces.FlightStorage, fuelStorage interfaces.FuelStorage, logger arbor.ILogger) *DataHandler {
	return &DataHandler{
		flightStorage: flightStorage,
		fuelStorage:   fuelStorage,
		logger:        logger,
	}
}

type flightRequest struct {
	FlightNo    string `json:"flight_no" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Aircraft    string `json:"aircraft"`
	Passengers  int    `json:"passengers" validate:"min=0"`
	BlockTime   string `json:"block_time"`
}

type fuelRequest struct {
	FlightID   string  `json:"flight_id" validate:"required"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Station    string  `json:"station"`
	UpliftKG   float64 `json:"uplift_kg" validate:"min=0"`
	BurnKG     float64 `json:"burn_kg" validate:"min=0"`
	DensityKGL float64 `json:"density_kgl" validate:"min=0"`
	Supplier   string  `json:"supplier"`
}

// FlightsHandler handles GET (list) and POST (create) on the collection.
func (h *DataHandler) FlightsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		limit := QueryInt(r, "limit", 50)
		offset := QueryInt(r, "offset", 0)
		records, err := h.flightStorage.List(r.Context(), limit, offset)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list flight records")
			WriteError(w, http.StatusInternalServerError, "Failed to list flight records")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"records": records, "count": len(records)})

	case "POST":
		var req flightRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		record := &models.FlightRecord{
			ID:          uuid.New().String(),
			FlightNo:    req.FlightNo,
			Date:        req.Date,
			Origin:      req.Origin,
			Destination: req.Destination,
			Aircraft:    req.Aircraft,
			Passengers:  req.Passengers,
			BlockTime:   req.BlockTime,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := h.flightStorage.Save(r.Context(), record); err != nil {
			h.logger.Error().Err(err).Msg("Failed to save flight record")
			WriteError(w, http.StatusInternalServerError, "Failed to save flight record")
			return
		}
		WriteJSON(w, http.StatusCreated, record)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// FlightHandler handles GET and DELETE on /api/flights/{id}.
func (h *DataHandler) FlightHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/flights/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Record ID required")
		return
	}

	switch r.Method {
	case "GET":
		record, err := h.flightStorage.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, "Flight record not found")
			return
		}
		WriteJSON(w, http.StatusOK, record)

	case "DELETE":
		if err := h.flightStorage.Delete(r.Context(), id); err != nil {
			h.logger.Error().Err(err).Str("id", id).Msg("Failed to delete flight record")
			WriteError(w, http.StatusInternalServerError, "Failed to delete flight record")
			return
		}
		WriteSuccess(w, "Flight record deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// FuelHandler handles GET (list) and POST (create) on the collection.
func (h *DataHandler) FuelHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		limit := QueryInt(r, "limit", 50)
		offset := QueryInt(r, "offset", 0)
		records, err := h.fuelStorage.List(r.Context(), limit, offset)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list fuel records")
			WriteError(w, http.StatusInternalServerError, "Failed to list fuel records")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"records": records, "count": len(records)})

	case "POST":
		var req fuelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		record := &models.FuelRecord{
			ID:         uuid.New().String(),
			FlightID:   req.FlightID,
			Date:       req.Date,
			Station:    req.Station,
			UpliftKG:   req.UpliftKG,
			BurnKG:     req.BurnKG,
			DensityKGL: req.DensityKGL,
			Supplier:   req.Supplier,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		if err := h.fuelStorage.Save(r.Context(), record); err != nil {
			h.logger.Error().Err(err).Msg("Failed to save fuel record")
			WriteError(w, http.StatusInternalServerError, "Failed to save fuel record")
			return
		}
		WriteJSON(w, http.StatusCreated, record)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// FuelRecordHandler handles GET and DELETE on /api/fuel/{id}.
func (h *DataHandler) FuelRecordHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/fuel/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Record ID required")
		return
	}

	switch r.Method {
	case "GET":
		record, err := h.fuelStorage.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, "Fuel record not found")
			return
		}
		WriteJSON(w, http.StatusOK, record)

	case "DELETE":
		if err := h.fuelStorage.Delete(r.Context(), id); err != nil {
			h.logger.Error().Err(err).Str("id", id).Msg("Failed to delete fuel record")
			WriteError(w, http.StatusInternalServerError, "Failed to delete fuel record")
			return
		}
		WriteSuccess(w, "Fuel record deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
