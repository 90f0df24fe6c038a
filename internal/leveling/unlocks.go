package leveling

import "github.com/example/studyquest/pkg/models"

// Feature is a part of the app that younger profiles unlock by levelling up
type Feature string

const (
	FeatureQuests       Feature = "quests"
	FeatureAchievements Feature = "achievements"
	FeatureStreaks      Feature = "streaks"
)

var unlockLevels = map[Feature]int{
	FeatureQuests:       3,
	FeatureAchievements: 5,
	FeatureStreaks:      5,
}

var featureOrder = []Feature{FeatureQuests, FeatureAchievements, FeatureStreaks}

// UnlockLevel returns the level at which group gains access to feature.
// Adults have everything from the start.
func UnlockLevel(group models.AgeGroup, feature Feature) int {
	if group == models.AgeGroupAdult {
		return 1
	}
	if level, ok := unlockLevels[feature]; ok {
		return level
	}
	return 1
}

// IsUnlocked reports whether a profile at level can use feature
func IsUnlocked(group models.AgeGroup, level int, feature Feature) bool {
	return level >= UnlockLevel(group, feature)
}

// UnlocksAt returns the features group gains exactly when reaching level
func UnlocksAt(group models.AgeGroup, level int) []Feature {
	if group == models.AgeGroupAdult {
		return nil
	}
	var features []Feature
	for _, feature := range featureOrder {
		if unlockLevels[feature] == level {
			features = append(features, feature)
		}
	}
	return features
}
