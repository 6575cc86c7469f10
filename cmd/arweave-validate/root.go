package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weavevalidator/validator/blockindex"
	"github.com/weavevalidator/validator/config"
	"github.com/weavevalidator/validator/jsontypes"
	"github.com/weavevalidator/validator/log"
	"github.com/weavevalidator/validator/randomx"
	"github.com/weavevalidator/validator/types"
	"github.com/weavevalidator/validator/validator"
)

const (
	currentHeaderFlag  = "current-header"
	previousHeaderFlag = "previous-header"
	blockIndexFlag     = "block-index"
	configFileFlag     = "config-file"
	randomxKeyFlag     = "randomx-key"
	logLevelFlag       = "log-level"
)

var rootCmd = &cobra.Command{
	Use:          "arweave-validate",
	Short:        "validates a single Arweave block header against its predecessor",
	RunE:         runValidate,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.String(currentHeaderFlag, "", "path to the candidate block header JSON fixture (required)")
	flags.String(previousHeaderFlag, "", "path to the predecessor block header JSON fixture (required)")
	flags.String(blockIndexFlag, "", "path to a blockindex.AppendTo flat file (optional; required only if the block's recall offset falls before it)")
	flags.String(configFileFlag, "", "path to a YAML file overriding the mainnet default Config")
	flags.String(randomxKeyFlag, "617277656176652d76616c696461746f722d66616b652d65706f6368", "hex-encoded epoch key for the fake RandomX VM (no cgo RandomX build is wired into this CLI; see DESIGN.md)")
	flags.String(logLevelFlag, "info", "log level: trace, debug, info, warn, error")

	cobra.CheckErr(rootCmd.MarkFlagRequired(currentHeaderFlag))
	cobra.CheckErr(rootCmd.MarkFlagRequired(previousHeaderFlag))

	cobra.CheckErr(viper.BindPFlags(flags))
}

type validationResult struct {
	Height   uint64 `json:"height"`
	Hash     string `json:"hash"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

func readHeader(path string) (*types.BlockHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	h, err := jsontypes.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return h, nil
}

func loadConfig() config.Config {
	v := viper.GetViper()
	if path := v.GetString(configFileFlag); path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			log.Warnf("config file %s not applied: %s", path, err)
		}
	}
	return config.Load(v)
}

func runValidate(cmd *cobra.Command, args []string) error {
	log.SetGlobalLogger("", viper.GetString(logLevelFlag))

	cur, err := readHeader(viper.GetString(currentHeaderFlag))
	if err != nil {
		return err
	}
	prev, err := readHeader(viper.GetString(previousHeaderFlag))
	if err != nil {
		return err
	}

	var idx *blockindex.Index
	if path := viper.GetString(blockIndexFlag); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open block index %s: %w", path, err)
		}
		defer f.Close()
		idx, err = blockindex.LoadFrom(f)
		if err != nil {
			return fmt.Errorf("load block index %s: %w", path, err)
		}
	} else {
		idx = blockindex.New()
	}

	keyHex := viper.GetString(randomxKeyFlag)
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", randomxKeyFlag, err)
	}
	vm := randomx.NewFakeVM(key)
	defer vm.Close()

	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ValidationDeadline)
	defer cancel()

	result := validationResult{Height: cur.Height, Hash: cur.IndepHash.String()}
	if err := validator.Validate(ctx, cur, prev, idx, vm, cfg); err != nil {
		result.Accepted = false
		result.Error = err.Error()
		log.Errorf("block %d rejected: %s", cur.Height, err)
	} else {
		result.Accepted = true
		log.Infof("block %d accepted", cur.Height)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Accepted {
		return fmt.Errorf("block %d rejected: %s", result.Height, result.Error)
	}
	return nil
}
