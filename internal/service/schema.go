package service

import "github.com/ippclub/gem-poller/internal/model"

// Configuration keys
const (
	KeyURL = "url"
	KeyGem = "gem"
)

// RepositoryConfiguration returns the fields a gem repository needs
func RepositoryConfiguration() map[string]model.FieldDescriptor {
	return map[string]model.FieldDescriptor{
		KeyURL: field("URL", "1"),
	}
}

// PackageConfiguration returns the fields a gem package needs
func PackageConfiguration() map[string]model.FieldDescriptor {
	return map[string]model.FieldDescriptor{
		KeyGem: field("Gem", "1"),
	}
}

func field(displayName, displayOrder string) model.FieldDescriptor {
	return model.FieldDescriptor{
		DisplayName:    displayName,
		PartOfIdentity: true,
		Required:       true,
		Secure:         false,
		DisplayOrder:   displayOrder,
	}
}
