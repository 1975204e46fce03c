// Package config loads site2apk settings.
//
// Resolution order, later wins:
//
//  1. Built-in defaults (Default)
//  2. site2apk.toml, or the file passed with --config
//  3. SITE2APK_* environment variables, including those from a .env file
//
// Example site2apk.toml:
//
//	listen = ":8080"
//	remote_base_url = "https://functions.example.com"
//	endpoint_map = "/func2url.json"
//	endpoint_key = "html-to-apk"
//	request_timeout = "2m"
//	progress_interval = "500ms"
//	progress_step = 10
//	max_upload_mb = 100
//	ntfy_topic = ""
//	log_level = "info"
//	log_format = "text"
//
// remote_base_url has no default; it is required whenever endpoint_map is a
// relative location.
package config
