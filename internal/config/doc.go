// Package config loads qaglue configuration.
//
// Configuration lives in qaglue.json (or qaglue.yaml / qaglue.yml) in the
// working directory. Durations are Go duration strings.
//
//	{
//	  "baseURL": "http://localhost:5000",
//	  "realtimeURL": "ws://localhost:5000/ws",
//	  "csrfMeta": "csrf-token",
//	  "vote": {"inFlight": "latest", "rollback": true},
//	  "search": {"delay": "300ms"},
//	  "tags": {"delay": "500ms"},
//	  "stats": {"interval": "30s"},
//	  "toast": {"duration": "5s"},
//	  "enhance": {"highlight": true},
//	  "theme": {"store": ".qaglue/prefs.json"},
//	  "dev": {"addr": "localhost:5000", "db": "qaglue.db", "csrfToken": "dev"}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	fmt.Println("Backend:", cfg.BaseURL)
package config
