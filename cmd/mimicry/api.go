package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/CTAG07/mimicry/pkg/markov"
	"github.com/CTAG07/mimicry/pkg/store"
)

// ModelAPI holds the dependencies for the model API handlers.
type ModelAPI struct {
	store     *store.Store
	tokenizer *markov.Tokenizer
	logger    *slog.Logger
	config    *Config
}

// NewModelAPI creates a new instance of the ModelAPI.
func NewModelAPI(s *store.Store, logger *slog.Logger, config *Config) *ModelAPI {
	return &ModelAPI{
		store:     s,
		tokenizer: markov.NewTokenizer(),
		logger:    logger,
		config:    config,
	}
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (a *ModelAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/models", a.handleListAndCreateModels)
	mux.HandleFunc("/api/models/", a.handleModelByName)
	mux.HandleFunc("/api/import", a.handleImport)
}

type CreateModelRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
	Text  string `json:"text"`
}

type TrainRequest struct {
	Text string `json:"text"`
}

type GenerateRequest struct {
	Seed        *int64  `json:"seed"`
	MaxLength   int     `json:"maxLength"`
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"topK"`
	Count       int     `json:"count"`
}

type GenerateResponse struct {
	Model  string   `json:"model"`
	Chains []string `json:"chains"`
}

type PruneRequest struct {
	MinFreq int `json:"minFreq"`
}

// handleListAndCreateModels handles GET for listing and POST for training new models.
func (a *ModelAPI) handleListAndCreateModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		infos, err := a.store.Infos(r.Context())
		if err != nil {
			a.logger.Error("Failed to get model infos", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve models: %v", err))
			return
		}
		// Convert map to slice for consistent JSON output
		modelList := make([]store.ModelInfo, 0, len(infos))
		for _, info := range infos {
			modelList = append(modelList, info)
		}
		respondWithJSON(w, http.StatusOK, modelList)

	case http.MethodPost:
		var req CreateModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Name == "" {
			respondWithError(w, http.StatusBadRequest, "Model name is required")
			return
		}
		order := req.Order
		if order <= 0 {
			order = a.config.DefaultOrder
		}

		m, err := markov.Build(a.tokenizer.Tokenize(req.Text), order)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Training failed: %v", err))
			return
		}
		if err = a.store.Save(r.Context(), req.Name, m); err != nil {
			if errors.Is(err, store.ErrOrderMismatch) {
				respondWithError(w, http.StatusConflict, err.Error())
				return
			}
			a.logger.Error("Failed to save new model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create model: %v", err))
			return
		}
		info, err := a.store.Info(r.Context(), req.Name)
		if err != nil {
			a.logger.Error("Failed to retrieve newly created model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to verify model creation: %v", err))
			return
		}
		respondWithJSON(w, http.StatusCreated, info)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleModelByName routes actions for a specific model, e.g., train, generate, export, delete.
func (a *ModelAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {

	path := strings.TrimPrefix(r.URL.Path, "/api/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}

	info, err := a.store.Info(r.Context(), modelName)
	if err != nil {
		if errors.Is(err, store.ErrModelNotFound) {
			respondWithError(w, http.StatusNotFound, "Model not found")
			return
		}
		a.logger.Error("Failed to get model info by name", "name", modelName, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	if len(parts) == 1 { // Path is just /api/models/{name}
		switch r.Method {
		case http.MethodGet:
			respondWithJSON(w, http.StatusOK, info)
		case http.MethodDelete:
			if err = a.store.Delete(r.Context(), modelName); err != nil {
				a.logger.Error("Failed to remove model", "name", modelName, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove model: %v", err))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "train":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req TrainRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		m, err := markov.Build(a.tokenizer.Tokenize(req.Text), info.Order)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Training failed: %v", err))
			return
		}
		if err = a.store.Save(r.Context(), modelName, m); err != nil {
			a.logger.Error("Failed to train model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
			return
		}
		w.WriteHeader(http.StatusAccepted)

	case "generate":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req GenerateRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		a.handleGenerate(w, r, info, req)

	case "prune":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req PruneRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if err = a.store.Prune(r.Context(), modelName, req.MinFreq); err != nil {
			a.logger.Error("Failed to prune model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Pruning failed: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case "export":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", modelName))
		if err = a.store.Export(r.Context(), modelName, w); err != nil {
			a.logger.Error("Failed to export model", "name", modelName, "error", err)
		}

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

func (a *ModelAPI) handleGenerate(w http.ResponseWriter, r *http.Request, info store.ModelInfo, req GenerateRequest) {
	m, err := a.store.Load(r.Context(), info.Name)
	if err != nil {
		a.logger.Error("Failed to load model", "name", info.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load model: %v", err))
		return
	}

	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = a.config.DefaultMaxLength
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = 1.0
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	var rng *rand.Rand
	if req.Seed != nil {
		rng = rand.New(rand.NewPCG(uint64(*req.Seed), uint64(*req.Seed)))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	chains := make([]string, 0, count)
	for i := 0; i < count; i++ {
		tokens := markov.Generate(m,
			markov.WithRand(rng),
			markov.WithMaxLength(maxLength),
			markov.WithTemperature(temperature),
			markov.WithTopK(req.TopK),
		)
		chains = append(chains, a.tokenizer.Join(tokens))
	}

	respondWithJSON(w, http.StatusOK, GenerateResponse{Model: info.Name, Chains: chains})
}

// handleImport imports a model from an uploaded JSON export.
func (a *ModelAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := a.store.Import(r.Context(), r.Body); err != nil {
		a.logger.Error("Failed to import model", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Import failed: %v", err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}
