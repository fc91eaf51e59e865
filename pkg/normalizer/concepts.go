package normalizer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// builtinConcepts maps a canonical concept tag to its surface forms across
// the supplier languages we see in practice (FR, IT, ES, DE, EN, PT, NL).
// Surface forms are normalized before indexing, so accents and case here are
// cosmetic.
var builtinConcepts = map[string][]string{
	// Identifiers / references
	"reference": {"référence", "ref", "codigo", "codice", "code", "item", "sku", "artikel", "articolo", "artigo", "product_id", "productid", "artikel nr", "art", "art nr"},
	"barcode":   {"code barre", "ean", "ean13", "upc", "gtin", "barcode", "codice a barre", "codigo de barras", "codebar"},
	"id":        {"identifiant", "identifier", "identificador", "identificatore", "uid", "uuid", "id"},

	// Descriptions
	"label":       {"libellé", "libelle", "nom", "name", "nome", "nombre", "bezeichnung", "denominazione", "title", "titre", "benaming", "désignation", "designation"},
	"description": {"descriptif", "descrizione", "descripcion", "beschreibung", "descricao", "desc", "description", "omschrijving"},

	// Prices
	"price":          {"prix", "prezzo", "precio", "preis", "preco", "cost", "cout", "costo", "coste", "custo", "price", "pris", "hinta"},
	"price_ht":       {"prix ht", "prix public ht", "ht public", "price excl vat", "prezzo netto", "precio sin iva", "preis netto", "net price", "excl vat", "hors taxe", "sans tva"},
	"price_ttc":      {"prix ttc", "prix public ttc", "ttc public", "price incl vat", "prezzo lordo", "precio con iva", "preis brutto", "gross price", "incl vat", "toutes taxes", "avec tva", "pubblico"},
	"purchase_price": {"prix achat", "prix dachat", "prix d achat", "purchase price", "buying price", "prezzo acquisto", "precio compra", "einkaufspreis", "prix fournisseur", "acquisto"},
	"web_price":      {"prix web", "prix internet", "web price", "online price", "prezzo web", "precio web", "prix en ligne", "minimumprezzo web"},

	// Categories / classifications
	"category":    {"catégorie", "categorie", "categoria", "kategorie", "rubrique", "famille", "family"},
	"subcategory": {"sous-catégorie", "sous categorie", "subcategoria", "unterkategorie", "sous-famille"},
	"brand":       {"marque", "marca", "marke", "brand", "fabricant", "manufacturer", "fabbricante"},
	"model":       {"modèle", "modele", "modello", "modelo", "modell"},

	// Product attributes
	"color":    {"couleur", "colore", "color", "farbe", "cor", "kleur", "vari"},
	"size":     {"taille", "dimension", "taglia", "tamano", "grosse", "tamanho", "maat", "size"},
	"weight":   {"poids", "peso", "gewicht", "weight"},
	"material": {"matière", "matiere", "matériau", "materiau", "material", "materiale", "stoff", "materiaal"},

	// Stock / quantity
	"stock":    {"stock", "inventaire", "inventory", "disponibilité", "disponibilite", "disponibile", "disponible", "verfugbar"},
	"quantity": {"quantité", "quantite", "quantita", "cantidad", "menge", "quantidade", "qty", "qte"},

	// Images / media
	"image":     {"image", "immagine", "imagen", "bild", "photo", "foto", "picture", "pic", "img", "afbeelding"},
	"image_url": {"url image", "lien image", "image url", "image link", "link immagine", "foto link"},

	// Dimensions
	"length": {"longueur", "lunghezza", "longitud", "lange", "comprimento"},
	"width":  {"largeur", "larghezza", "anchura", "breite", "largura"},
	"height": {"hauteur", "altezza", "altura", "hohe"},

	// Misc supplier info
	"supplier":     {"fournisseur", "fornitore", "proveedor", "lieferant", "fornecedor", "vendor"},
	"availability": {"disponibilité", "disponibilite", "disponibilita", "disponibilidad", "verfugbarkeit"},
	"delivery":     {"livraison", "délai", "delai", "consegna", "entrega", "lieferung", "delivery time"},
}

// builtinStopwords are articles, prepositions and price qualifiers that carry
// no matching signal, across FR/IT/ES/DE/EN.
var builtinStopwords = []string{
	"de", "du", "des", "le", "la", "les", "un", "une", "di", "del", "della", "il", "lo",
	"el", "los", "las", "der", "die", "das", "the", "a", "an", "of", "for", "in", "on", "at",
	"public", "minimum", "maximum", "net", "gross", "total", "base",
}

// conceptsFile is the YAML override format: extra surface forms are merged
// on top of the built-in table, extra stopwords are added to the set.
type conceptsFile struct {
	Concepts  map[string][]string `yaml:"concepts"`
	Stopwords []string            `yaml:"stopwords"`
}

// LoadFile merges a YAML concepts file into the dictionary and remembers the
// path so Reload can pick up edits.
func (d *Dictionary) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read concepts file %s: %w", path, err)
	}
	var cf conceptsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse concepts file %s: %w", path, err)
	}
	d.rebuild(cf.Concepts, cf.Stopwords)

	d.mu.Lock()
	d.path = path
	d.mu.Unlock()
	return nil
}

// Reload re-reads the concepts file loaded by LoadFile (hot reload).
// A dictionary without a file is reset to the built-in table.
func (d *Dictionary) Reload() error {
	d.mu.RLock()
	path := d.path
	d.mu.RUnlock()

	if path == "" {
		d.rebuild(nil, nil)
		return nil
	}
	return d.LoadFile(path)
}
