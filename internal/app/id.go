package app

import "github.com/google/uuid"

// generateID produces a random identifier for entities and setup sessions.
// Isolated here so the ID strategy can evolve independently.
func generateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
