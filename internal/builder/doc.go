// Package builder is the HTTP client for the remote package-build service.
//
// The service takes the application name, version, site archive and icon as
// data URIs in a JSON body and answers with a base64 APK:
//
//	POST <resolved endpoint>
//	{"appName": "...", "appVersion": "...", "zipFile": "data:...", "iconFile": "data:..."}
//
//	200 {"apkFile": "<base64>", "fileName": "My_App_v1.0.0.apk"}
//	500 {"error": "Build failed"}
//
// Responses are classified into four outcomes:
//
//   - ErrNetwork: the request never got an answer (refused, DNS, timeout)
//   - *RemoteError: non-2xx status, or 2xx JSON without apkFile; Message
//     carries the service's "error" field verbatim when present
//   - ErrMalformedResponse: 2xx with a non-JSON content type or broken JSON
//   - Result: everything else
//
// The client never retries; the user resubmits.
package builder
