// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"strings"

	"github.com/jllopis/bringacrew/pkg/capability"
)

var dogWeights = map[string]string{
	"scottish terrier": "Scottish Terriers average 20 lbs",
	"border collie":    "a Border Collies average weight is 37 lbs",
	"poodle":           "a poodles average weight is 27 lbs",
	"bulldog":          "a Bulldogs average weight is 40 lbs",
}

// DogWeight returns the dog_weight_for_breed capability.
func DogWeight() capability.Capability {
	return capability.Simple("dog_weight_for_breed",
		"Finds the average weight of a dog breed, e.g. border collie.",
		averageDogWeight)
}

func averageDogWeight(breed string) string {
	name := strings.TrimSpace(breed)
	if w, ok := dogWeights[strings.ToLower(name)]; ok {
		return w
	}
	return "Have no idea about the average weight for " + name + ", but an average dog weights 50 lbs"
}
