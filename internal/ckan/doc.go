// Package ckan scans the resources of a CKAN open-data portal dataset for a
// keyword.
//
// Resources are listed with the package_show action. When that fails the
// adapter falls back to the first package_search result and finally to
// resource links scraped from the dataset's web page. Datastore-backed
// resources are scored record by record through datastore_search; every
// resource with a URL is also downloaded up to a byte cap and scored as a
// whole.
package ckan
