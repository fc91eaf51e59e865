package learning

import (
	"fmt"
	"sort"
)

// SeedPair is one (supplier header, target field) example in the seed corpus.
type SeedPair struct {
	Source string
	Target string
}

// SeedCorpus is the built-in multilingual pre-training corpus: common
// supplier header spellings mapped onto the default target schema, per
// language, plus punctuation variants and abbreviations.
var SeedCorpus = map[string][]SeedPair{
	"french": {
		{"Référence", "Référence"},
		{"Réf", "Référence"},
		{"Code produit", "Référence"},
		{"Code article", "Référence"},
		{"EAN", "Code barre"},
		{"EAN13", "Code barre"},
		{"Code barre", "Code barre"},
		{"UPC", "Code barre"},
		{"Libellé", "Libellé"},
		{"Nom", "Libellé"},
		{"Titre", "Libellé"},
		{"Désignation", "Libellé"},
		{"Description", "Descriptif"},
		{"Descriptif", "Descriptif"},
		{"Prix achat", "Prix achat net"},
		{"Prix achat HT", "Prix achat net"},
		{"Prix fournisseur", "Prix achat net"},
		{"Prix public HT", "Prix public HT"},
		{"Prix HT", "Prix public HT"},
		{"Prix TTC", "Prix TTC"},
		{"Prix public TTC", "Prix TTC"},
		{"Catégorie", "Catégorie"},
		{"Rubrique", "Catégorie"},
		{"Sous-catégorie", "Sous-catégorie"},
		{"Marque", "Marque"},
		{"Fabricant", "Marque"},
		{"Couleur", "Couleur"},
		{"Coloris", "Couleur"},
		{"Taille", "Taille"},
		{"Poids", "Poids"},
		{"Stock", "Stock"},
		{"Disponibilité", "Stock"},
		{"Quantité", "Quantité"},
		{"Image", "Image 1"},
		{"Photo", "Image 1"},
	},
	"italian": {
		{"Codice", "Référence"},
		{"Codice articolo", "Référence"},
		{"Codice prodotto", "Référence"},
		{"Item", "Référence"},
		{"Codice a barre", "Code barre"},
		{"Denominazione", "Libellé"},
		{"Nome", "Libellé"},
		{"Titolo", "Libellé"},
		{"Descrizione", "Descriptif"},
		{"Prezzo acquisto", "Prix achat net"},
		{"Prezzo netto", "Prix public HT"},
		{"Prezzo lordo", "Prix TTC"},
		{"Prezzo pubblico", "Prix TTC"},
		{"Prezzo", "Prix unitaire"},
		{"Prezzo Unitario", "Prix unitaire"},
		{"Quantita", "Quantité"},
		{"Categoria", "Catégorie"},
		{"Sottocategoria", "Sous-catégorie"},
		{"Marca", "Marque"},
		{"Marchio", "Marque"},
		{"Colore", "Couleur"},
		{"Taglia", "Taille"},
		{"Peso", "Poids"},
		{"Disponibilità", "Stock"},
		{"Magazzino", "Stock"},
		{"Immagine", "Image 1"},
	},
	"spanish": {
		{"Codigo", "Référence"},
		{"Codigo producto", "Référence"},
		{"Referencia", "Référence"},
		{"Codigo de barras", "Code barre"},
		{"Nombre", "Libellé"},
		{"Titulo", "Libellé"},
		{"Descripcion", "Descriptif"},
		{"Precio compra", "Prix achat net"},
		{"Precio sin IVA", "Prix public HT"},
		{"Precio con IVA", "Prix TTC"},
		{"Precio publico", "Prix TTC"},
		{"Cantidad", "Quantité"},
		{"Categoria", "Catégorie"},
		{"Subcategoria", "Sous-catégorie"},
		{"Fabricante", "Marque"},
		{"Marca", "Marque"},
		{"Color", "Couleur"},
		{"Talla", "Taille"},
		{"Peso", "Poids"},
		{"Disponibilidad", "Stock"},
		{"Imagen", "Image 1"},
	},
	"english": {
		{"Reference", "Référence"},
		{"Product code", "Référence"},
		{"Item code", "Référence"},
		{"SKU", "Référence"},
		{"Barcode", "Code barre"},
		{"Label", "Libellé"},
		{"Name", "Libellé"},
		{"Title", "Libellé"},
		{"Product name", "Libellé"},
		{"Description", "Descriptif"},
		{"Purchase price", "Prix achat net"},
		{"Cost price", "Prix achat net"},
		{"Net price", "Prix public HT"},
		{"Price excl VAT", "Prix public HT"},
		{"Retail price", "Prix TTC"},
		{"Price incl VAT", "Prix TTC"},
		{"Quantity", "Quantité"},
		{"Category", "Catégorie"},
		{"Subcategory", "Sous-catégorie"},
		{"Brand", "Marque"},
		{"Manufacturer", "Marque"},
		{"Colour", "Couleur"},
		{"Size", "Taille"},
		{"Weight", "Poids"},
		{"Availability", "Stock"},
		{"Picture", "Image 1"},
	},
	"german": {
		{"Artikel", "Référence"},
		{"Artikel-Nr", "Référence"},
		{"Artikelnummer", "Référence"},
		{"Strichcode", "Code barre"},
		{"Produktname", "Libellé"},
		{"Bezeichnung", "Libellé"},
		{"Titel", "Libellé"},
		{"Beschreibung", "Descriptif"},
		{"Einkaufspreis", "Prix achat net"},
		{"Nettopreis", "Prix public HT"},
		{"Preis ohne MwSt", "Prix public HT"},
		{"Bruttopreis", "Prix TTC"},
		{"Preis inkl MwSt", "Prix TTC"},
		{"Menge", "Quantité"},
		{"Kategorie", "Catégorie"},
		{"Unterkategorie", "Sous-catégorie"},
		{"Hersteller", "Marque"},
		{"Marke", "Marque"},
		{"Farbe", "Couleur"},
		{"Größe", "Taille"},
		{"Gewicht", "Poids"},
		{"Lagerbestand", "Stock"},
		{"Bild", "Image 1"},
	},
	"variants": {
		{"prix-achat-ht", "Prix achat net"},
		{"prix_achat_ht", "Prix achat net"},
		{"PRIX.ACHAT.HT", "Prix achat net"},
		{"code-barre", "Code barre"},
		{"code_barre", "Code barre"},
		{"prix-ttc", "Prix TTC"},
		{"prix_ttc", "Prix TTC"},
		{"prix-public-ht", "Prix public HT"},
		{"prix_public_ht", "Prix public HT"},
	},
	"abbreviations": {
		{"Ref", "Référence"},
		{"Réf", "Référence"},
		{"Cat", "Catégorie"},
		{"Desc", "Descriptif"},
		{"Img", "Image 1"},
		{"Dispo", "Stock"},
		{"HT", "Prix public HT"},
		{"TTC", "Prix TTC"},
		{"Qté", "Quantité"},
		{"Qty", "Quantité"},
	},
}

// SeedStats reports what a pre-training run inserted.
type SeedStats struct {
	TotalAdded        int            `json:"total_added"`
	DuplicatesSkipped int            `json:"duplicates_skipped"`
	ByLanguage        map[string]int `json:"by_language"`
}

// Pretrain bulk-loads a seed corpus into the store. Pairs already learned
// (same normalized source and target) are skipped; inserted entries carry
// the training marker so they can be told apart from user confirmations and
// wiped independently.
func (s *Store) Pretrain(corpus map[string][]SeedPair, template string) (SeedStats, error) {
	if corpus == nil {
		corpus = SeedCorpus
	}
	if template == "" {
		template = "auto-seed"
	}

	stats := SeedStats{ByLanguage: make(map[string]int)}

	languages := make([]string, 0, len(corpus))
	for lang := range corpus {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	for _, lang := range languages {
		for _, pair := range corpus[lang] {
			exists, err := s.HasPattern(pair.Source, pair.Target)
			if err != nil {
				return stats, fmt.Errorf("pretrain %s: %w", lang, err)
			}
			if exists {
				stats.DuplicatesSkipped++
				continue
			}
			if err := s.addCorrection(pair.Source, pair.Target, template, 0, true, lang); err != nil {
				return stats, fmt.Errorf("pretrain %s %q: %w", lang, pair.Source, err)
			}
			stats.TotalAdded++
			stats.ByLanguage[lang]++
		}
	}

	s.logger.Info("pre-training complete",
		"added", stats.TotalAdded, "skipped", stats.DuplicatesSkipped, "languages", len(languages))
	return stats, nil
}
