// Copyright 2026 The arm9 Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package http contains private implementation details for the bootsim
// monitor server.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
)

// Status is one snapshot of the simulated boot.
type Status struct {
	// Phase is the coarse simulator phase: reset, booted, exited or
	// trapped.
	Phase string `json:"phase"`
	// Stage is the startup sequencer stage last reached.
	Stage string `json:"stage"`
	// Mode is the current processor mode.
	Mode string `json:"mode"`
	// PC is the current program counter.
	PC uint32 `json:"pc"`
	// Trapped and Halted report the terminal core states.
	Trapped bool `json:"trapped"`
	Halted  bool `json:"halted"`
	// ExitCode is set when the program exited through the host
	// interface.
	ExitCode *uint32 `json:"exit_code,omitempty"`
}

// Stack describes one mode's stack carving.
type Stack struct {
	Mode   string `json:"mode"`
	Top    uint32 `json:"top"`
	Bottom uint32 `json:"bottom"`
}

// Vector describes one resolved vector table slot.
type Vector struct {
	Exception string `json:"exception"`
	Offset    uint32 `json:"offset"`
	Target    uint32 `json:"target"`
}

// Source provides the monitor's view of the simulator. Implementations
// must be safe for concurrent use; the simulator owns the core, the
// monitor only ever sees snapshots.
type Source interface {
	Status() Status
	Stacks() []Stack
	Vectors() []Vector
}

// Server is the handler implementation of the bootsim monitor.
type Server struct {
	src Source
}

// NewServer creates a monitor server over the given source.
func NewServer(src Source) *Server {
	return &Server{src: src}
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.src.Status())
}

func (s *Server) getStacks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.src.Stacks())
}

func (s *Server) getVectors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.src.Vectors())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Errorf("Failed to encode response: %v", err)
		http.Error(w, fmt.Sprintf("failed to encode response: %q", err.Error()), http.StatusInternalServerError)
	}
}

// RegisterHandlers registers HTTP handlers for the monitor endpoints.
func (s *Server) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/bootsim/v0/status", s.getStatus).Methods("GET")
	r.HandleFunc("/bootsim/v0/stacks", s.getStacks).Methods("GET")
	r.HandleFunc("/bootsim/v0/vectors", s.getVectors).Methods("GET")
}
