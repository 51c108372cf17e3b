// Package utils provides input validation shared by the API and the service catalog.
package utils
