package configdoc

import (
	"encoding/json"
	"fmt"
)

// StartMenuKind selects how a start menu block picks its copy set.
type StartMenuKind int

const (
	// StartMenuServer copies one of two file sets depending on whether
	// a named Windows feature is installed.
	StartMenuServer StartMenuKind = iota
	// StartMenuClient copies the file set keyed by the OS display name.
	StartMenuClient
)

func (k StartMenuKind) String() string {
	if k == StartMenuClient {
		return "Client"
	}
	return "Server"
}

// ServerStartMenu copies exactly one of Exists/NotExists per run,
// chosen by the installed state of Feature.
type ServerStartMenu struct {
	Feature   string     `json:"feature"`
	Exists    []CopySpec `json:"exists,omitempty"`
	NotExists []CopySpec `json:"notExists,omitempty"`
}

// StartMenuBlock is a type-tagged variant: the JSON "type" field picks
// which of the two layouts the remaining fields describe.
type StartMenuBlock struct {
	Kind   StartMenuKind
	Server *ServerStartMenu
	// Client maps an OS display name to the file set copied for it.
	Client map[string][]CopySpec
}

func (b *StartMenuBlock) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.Type {
	case "Server":
		var server ServerStartMenu
		if err := json.Unmarshal(data, &server); err != nil {
			return err
		}
		*b = StartMenuBlock{Kind: StartMenuServer, Server: &server}
	case "Client":
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		delete(raw, "type")
		client := make(map[string][]CopySpec, len(raw))
		for osName, entry := range raw {
			var copies []CopySpec
			if err := json.Unmarshal(entry, &copies); err != nil {
				return fmt.Errorf("start menu entry for %q: %v", osName, err)
			}
			client[osName] = copies
		}
		*b = StartMenuBlock{Kind: StartMenuClient, Client: client}
	default:
		return fmt.Errorf("unknown start menu type %q", tag.Type)
	}
	return nil
}

func (b *StartMenuBlock) validate() error {
	if b.Kind == StartMenuServer {
		if b.Server == nil || b.Server.Feature == "" {
			return fmt.Errorf("server start menu block needs a feature name")
		}
	}
	return nil
}
