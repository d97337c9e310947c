package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Init creates or updates the config file at path (DefaultPath when empty).
// A missing file is created with defaults. topic, when non-empty, joins that
// topic; otherwise a topic is generated if the file has none. Existing values
// are preserved and CBPORTAL_* env overrides are not written. Returns the
// resulting topic and whether the file was created.
func Init(path, topic string) (string, bool, error) {
	v := viper.New()
	if err := prepareFile(v, path); err != nil {
		return "", false, err
	}
	path = v.ConfigFileUsed()

	created := false
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
		}
		created = true
	}

	switch {
	case topic != "":
		if strings.ContainsAny(topic, "+#\x00") {
			return "", false, fmt.Errorf("%w: topic %q must not contain wildcards", ErrConfig, topic)
		}
		v.Set(KeyTopic, topic)
	case v.GetString(KeyTopic) == "":
		v.Set(KeyTopic, GenerateTopic())
	}

	// The file may hold broker credentials.
	v.SetConfigPermissions(0o600)
	if err := v.WriteConfigAs(path); err != nil {
		return "", false, fmt.Errorf("%w: write %s: %v", ErrConfig, path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return "", false, fmt.Errorf("%w: chmod %s: %v", ErrConfig, path, err)
	}
	return v.GetString(KeyTopic), created, nil
}

var topicWords = []string{
	"amber", "anchor", "apple", "arrow", "badge", "basil", "birch", "bison",
	"cable", "candle", "canyon", "cedar", "cobalt", "comet", "coral", "cotton",
	"delta", "dingo", "drift", "ember", "falcon", "fern", "fiddle", "flint",
	"garnet", "ginger", "glacier", "harbor", "hazel", "heron", "indigo", "island",
	"jasper", "juniper", "kettle", "kiwi", "lagoon", "lantern", "lemon", "lilac",
	"maple", "marble", "meadow", "mango", "nectar", "nickel", "oasis", "orbit",
	"otter", "pebble", "pepper", "pine", "quartz", "quill", "raven", "river",
	"saffron", "salmon", "tango", "thistle", "tulip", "velvet", "walnut", "willow",
}

// GenerateTopic returns a fresh topic name of the form word-word-word-NN.
// Topics are not secret; the name only needs to be unlikely to collide.
func GenerateTopic() string {
	parts := make([]string, 0, 4)
	for range 3 {
		parts = append(parts, topicWords[rand.IntN(len(topicWords))])
	}
	parts = append(parts, strconv.Itoa(rand.IntN(101)))
	return strings.Join(parts, "-")
}
