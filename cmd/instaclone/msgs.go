package instaclone

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Fast, cached installations of versioned files"
	MsgPublishShort    = "Publish the current version of configured items"
	MsgInstallShort    = "Install configured items from the cache or remote"
	MsgPurgeShort      = "Delete the entire local cache"
	MsgConfigsShort    = "Show the resolved configuration"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	MsgPublishLong = `Publish uploads the current version of each named item (or all items
when none are named) to its remote location and installs it back from
the cache. Republishing an existing version fails unless --force is
given, so published versions are never silently changed.`

	MsgInstallLong = `Install materializes each named item (or all items when none are
named) at its local path. Versions already in the cache install
without any network access; anything else is downloaded first.`

	MsgPurgeLong = `Purge deletes the whole cache root, including every cached version of
every item. Locally installed copies are left alone, but symlinked or
hardlinked installs will dangle until the next install.`

	MsgConfigsLong = `Configs prints the settings and items as loaded from the config file
and environment, with defaults applied. Nothing is contacted and
nothing is written.`

	// Command examples
	MsgPublishExample = `  instaclone publish
  instaclone publish frames --force`
	MsgInstallExample = `  instaclone install
  instaclone install frames models --offline`
	MsgConfigsExample = `  instaclone configs
  instaclone configs --config ./other.yml`

	// Status messages
	MsgPublished     = "✔ Published %s@%s\n"
	MsgInstalled     = "✔ Installed %s@%s\n"
	MsgPurged        = "✔ Purged cache at %s\n"
	MsgConfigsHeader = "Current configuration:"

	// Error messages
	MsgErrResolveVersion = "failed to resolve version for '%s': %w"
	MsgErrPublishItem    = "failed to publish '%s': %w"
	MsgErrInstallItem    = "failed to install '%s': %w"
	MsgErrPurge          = "failed to purge cache: %w"
	MsgErrRenderConfigs  = "failed to render configs: %w"

	// Flag descriptions
	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig  = "Config file to use instead of the usual search path"
	MsgFlagForce   = "Clobber existing cached or local targets (use with care)"
	MsgFlagOffline = "Never download; fail installs that are not already cached"

	// Hint appended to CLI errors on stderr
	MsgErrHint = "(run with -v for more detail)"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)
)
