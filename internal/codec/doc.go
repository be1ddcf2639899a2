// Package codec converts between a spreadsheet workbook and the ordered
// row maps the roster is built from. Only one sheet is ever read or
// written; its name is agreed upon up front (DefaultSheet unless the
// project config says otherwise).
package codec
