package config

const (
	defaultDepositTarget = "file"
	defaultFileFilename  = "hermes.json"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultGitExecutable = "git"
	defaultAccessRight   = "open"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Harvest: Harvest{
			Sources: []string{"cff", "git"},
			CFF: CFF{
				EnableValidation: true,
			},
			Git: Git{
				Executable: defaultGitExecutable,
			},
		},
		Deposit: Deposit{
			Target: defaultDepositTarget,
			Invenio: InvenioTarget{
				AccessRight: defaultAccessRight,
			},
			File: FileTarget{
				Filename: defaultFileFilename,
			},
		},
		Postprocess: Postprocess{
			Execute: []string{},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
