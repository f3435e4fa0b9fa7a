package service

import (
	"context"
	"fmt"
	"math/rand/v2"
)

var pseudonymNouns = []string{
	"Otter", "Falcon", "River", "Maple", "Comet", "Harbor", "Willow", "Lantern", "Meadow", "Pebble",
	"Sparrow", "Canyon", "Ember", "Glacier", "Heron", "Island", "Juniper", "Koala", "Lynx", "Marble",
	"Nebula", "Orchid", "Panda", "Quartz", "Raven", "Sequoia", "Tundra", "Violet", "Walrus", "Zephyr",
}

var pseudonymAdjectives = []string{
	"brave", "calm", "gentle", "bright", "quiet", "kind", "steady", "warm", "curious", "hopeful",
	"patient", "bold", "serene", "tender", "lively", "humble", "clever", "mellow", "sunny", "witty",
	"loyal", "graceful", "cheerful", "honest", "nimble", "radiant", "sincere", "swift", "vivid", "wise",
}

const pseudonymAttempts = 10

func randomPseudonym() string {
	noun := pseudonymNouns[rand.IntN(len(pseudonymNouns))]
	adjective := pseudonymAdjectives[rand.IntN(len(pseudonymAdjectives))]
	return noun + adjective
}

// uniquePublicID returns a pseudonym not used by any user.
// After a few collisions a numeric suffix widens the space.
func (s *DefaultService) uniquePublicID(ctx context.Context) (string, error) {
	for i := 0; i < pseudonymAttempts; i++ {
		candidate := randomPseudonym()
		if i >= pseudonymAttempts/2 {
			candidate = fmt.Sprintf("%s%04d", candidate, rand.IntN(10000))
		}

		exists, err := s.repo.PublicIDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("error checking user id: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique user id after %d attempts", pseudonymAttempts)
}
