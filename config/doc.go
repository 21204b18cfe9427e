// Package config provides configuration loading for filmgraph.
//
// Configuration is resolved in layers, later layers winning:
//
//  1. Built-in defaults (Loader.getDefaults)
//  2. JSON files added with AddLayer, deep-merged key by key
//  3. Variables from .env files (github.com/joho/godotenv); variables already
//     present in the process environment are not overwritten
//  4. Environment overrides: DATABASE_URL, TMDB_API_KEY,
//     FILMGRAPH_BIND_ADDRESS and FILMGRAPH_METRICS_PORT
//
// Basic usage:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/filmgraph.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		// errors.IsFatal(err) is true for missing or invalid settings
//	}
//
// database.url is the only required setting. When it is absent Validate returns
// an error wrapping errors.ErrMissingConfig and the process must not start.
//
// Config layers must be .json files, inside the working directory when the
// path is relative. Layers over 1 MiB, dotenv files over 64 KiB, documents
// nested deeper than 32 levels and oversized override values are rejected.
package config
