package aws

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws/defaults"
	"gopkg.in/ini.v1"
)

// ListProfiles returns the profile names found in the shared AWS
// credentials and config files, sorted. Each profile is a fetch target:
// `fetch --profiles` fans one cost fetch out per name listed here.
func ListProfiles() ([]string, error) {
	profiles := make(map[string]struct{})

	credsPath := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if credsPath == "" {
		credsPath = defaults.SharedCredentialsFilename()
	}
	if err := collectProfiles(credsPath, "", profiles); err != nil {
		return nil, fmt.Errorf("failed to load credentials file: %w", err)
	}

	configPath := os.Getenv("AWS_CONFIG_FILE")
	if configPath == "" {
		configPath = defaults.SharedConfigFilename()
	}
	// Config file sections are named "profile <name>" except the default one
	if err := collectProfiles(configPath, "profile ", profiles); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	result := make([]string, 0, len(profiles))
	for profile := range profiles {
		result = append(result, profile)
	}
	sort.Strings(result)

	return result, nil
}

// collectProfiles adds the section names of one ini file to the set,
// stripping sectionPrefix. A missing file contributes nothing.
func collectProfiles(path, sectionPrefix string, into map[string]struct{}) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return err
	}

	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		into[strings.TrimPrefix(section.Name(), sectionPrefix)] = struct{}{}
	}
	return nil
}

// IsValidProfile reports whether the profile exists in the shared AWS
// files. fetch rejects unknown profiles before fanning out so a typo
// fails the whole run up front instead of one worker task.
func IsValidProfile(profile string) bool {
	profiles, err := ListProfiles()
	if err != nil {
		return false
	}

	for _, p := range profiles {
		if p == profile {
			return true
		}
	}

	return false
}
