// Package cli implements the site2apk command line: serve runs the web form,
// convert builds one package from local files, endpoints inspects the remote
// endpoint map.
package cli
