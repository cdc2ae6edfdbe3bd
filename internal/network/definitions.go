package network

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definitions models the structure of configs/networks.yaml.
type Definitions struct {
	Networks map[string]Definition `yaml:"networks"`
}

// Definition describes one attestation network endpoint.
type Definition struct {
	Type            string `yaml:"type"`
	RPCURL          string `yaml:"rpc_url"`
	ContractAddress string `yaml:"contract_address"`
	Description     string `yaml:"description"`
}

// LoadDefinitions parses the YAML file containing network metadata. An empty
// path yields an empty set.
func LoadDefinitions(path string) (Definitions, error) {
	if strings.TrimSpace(path) == "" {
		return Definitions{Networks: map[string]Definition{}}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("读取网络配置失败: %w", err)
	}
	var defs Definitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return Definitions{}, fmt.Errorf("解析网络配置失败: %w", err)
	}
	if defs.Networks == nil {
		defs.Networks = map[string]Definition{}
	}
	for name, def := range defs.Networks {
		kind := strings.ToLower(strings.TrimSpace(def.Type))
		if kind == "" {
			kind = "evm"
		}
		if kind != "evm" {
			return Definitions{}, fmt.Errorf("网络 %s 使用了不支持的类型 %s", name, def.Type)
		}
		def.Type = kind
		defs.Networks[name] = def
	}
	return defs, nil
}
