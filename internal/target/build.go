package target

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
)

// Build dispatches on spec.Type — mirroring
// diggerhq-opencomputer/internal/compute/router.go's discriminator-based
// dispatch — to construct the concrete Provider for one BackupTarget.
// Replicate recurses: its TargetSpecificSettings names sibling target
// names whose specs are looked up in all.
func Build(ctx context.Context, log logr.Logger, name string, spec config.BackupTarget, all map[string]config.BackupTarget) (Provider, error) {
	switch spec.Type {
	case config.TargetTypeUNC:
		root, _ := spec.TargetSpecificSettings["RemoteDir"].(string)
		return &UNC{Log: log, Name: name, RemoteRoot: root}, nil

	case config.TargetTypeSFTP:
		cfg := SFTPConfig{
			Host:           stringSetting(spec, "Host"),
			Port:           intSetting(spec, "Port", 22),
			Username:       stringSetting(spec, "Username"),
			Password:       stringSetting(spec, "Password"),
			PrivateKeyPath: stringSetting(spec, "PrivateKeyPath"),
			RemoteDir:      stringSetting(spec, "RemoteDir"),
		}
		return NewSFTP(log, name, cfg), nil

	case config.TargetTypeS3:
		cfg := S3Config{
			Endpoint:        stringSetting(spec, "Endpoint"),
			Bucket:          stringSetting(spec, "Bucket"),
			Region:          stringSetting(spec, "Region"),
			Prefix:          stringSetting(spec, "Prefix"),
			AccessKeyID:     stringSetting(spec, "AccessKeyID"),
			SecretAccessKey: stringSetting(spec, "SecretAccessKey"),
			ForcePathStyle:  boolSetting(spec, "ForcePathStyle"),
		}
		return NewS3(ctx, log, name, cfg)

	case config.TargetTypeReplicate:
		names, _ := spec.TargetSpecificSettings["Destinations"].([]interface{})
		destinations := make([]Provider, 0, len(names))
		for _, n := range names {
			destName, ok := n.(string)
			if !ok {
				continue
			}
			destSpec, ok := all[destName]
			if !ok {
				return nil, fmt.Errorf("replicate target %q references unknown destination %q", name, destName)
			}
			dest, err := Build(ctx, log, destName, destSpec, all)
			if err != nil {
				return nil, err
			}
			destinations = append(destinations, dest)
		}
		return &Replicate{Log: log, Name: name, Destinations: destinations}, nil

	default:
		return nil, fmt.Errorf("unknown target type %q for target %q", spec.Type, name)
	}
}

func stringSetting(spec config.BackupTarget, key string) string {
	v, _ := spec.TargetSpecificSettings[key].(string)
	return v
}

func boolSetting(spec config.BackupTarget, key string) bool {
	v, _ := spec.TargetSpecificSettings[key].(bool)
	return v
}

func intSetting(spec config.BackupTarget, key string, fallback int) int {
	switch v := spec.TargetSpecificSettings[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
