// Package catalog implements store setup and product management: storefront
// creation with industry selection, product CRUD with Markdown descriptions,
// and image upload to the media directory.
package catalog
