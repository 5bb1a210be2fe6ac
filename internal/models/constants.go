// Package models contains data types and constants for the agriculture assistant.
package models

// Endpoints for the Generative Language API
const (
	EndpointBase = "https://generativelanguage.googleapis.com/v1beta"
)

// Model represents an available generative model
type Model struct {
	Name string
}

// Available models
var (
	Model20Flash = Model{Name: "gemini-2.0-flash"}
	Model25Flash = Model{Name: "gemini-2.5-flash"}
	Model25Pro   = Model{Name: "gemini-2.5-pro"}

	// DefaultModel is the recommended default
	DefaultModel = Model20Flash
)

// AllModels returns a list of all available models
func AllModels() []Model {
	return []Model{Model20Flash, Model25Flash, Model25Pro}
}

// LookupModel resolves a model name or alias. The empty name means the
// default model.
func LookupModel(name string) (Model, bool) {
	switch name {
	case "", "fast":
		return DefaultModel, true
	case "pro":
		return Model25Pro, true
	}
	for _, m := range AllModels() {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// ModelFromName returns a Model by its name, or DefaultModel when the name
// is unknown
func ModelFromName(name string) Model {
	if m, ok := LookupModel(name); ok {
		return m
	}
	return DefaultModel
}

// SystemInstruction is sent ahead of every query. It restricts the assistant
// to agriculture and weather.
const SystemInstruction = "You are MkulimaMkononi, a helpful assistant for farmers. " +
	"Only answer questions about agriculture and weather: crops, livestock, soil, pests, " +
	"planting seasons, farm management and weather forecasts. " +
	"If a question is about anything else, politely decline and explain that you can only " +
	"help with agriculture and weather questions."

// DefaultHeaders returns the default headers for generate requests
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}
