// Package naf holds the static NAF rev. 2 activity-code registry and the
// expander that turns partial codes into their canonical terminal set.
package naf

// Code is one terminal NAF entry: a canonical "NN.NNX" identifier and its label.
type Code struct {
	ID    string
	Label string
}

// registry lists the terminal NAF codes the prospection pipeline targets,
// in published order. Loaded once at process start, never mutated.
var registry = []Code{
	{"10.11Z", "Transformation et conservation de la viande de boucherie"},
	{"10.13A", "Préparation industrielle de produits à base de viande"},
	{"10.13B", "Charcuterie"},
	{"10.20Z", "Transformation et conservation de poisson, de crustacés et de mollusques"},
	{"10.39A", "Autre transformation et conservation de légumes"},
	{"10.39B", "Transformation et conservation de fruits"},
	{"10.51A", "Fabrication de lait liquide et de produits frais"},
	{"10.51B", "Fabrication de beurre"},
	{"10.51C", "Fabrication de fromage"},
	{"10.61A", "Meunerie"},
	{"10.71A", "Fabrication industrielle de pain et de pâtisserie fraîche"},
	{"10.71B", "Cuisson de produits de boulangerie"},
	{"10.71C", "Boulangerie et boulangerie-pâtisserie"},
	{"10.71D", "Pâtisserie"},
	{"10.81Z", "Fabrication de sucre"},
	{"10.89Z", "Fabrication d'autres produits alimentaires n.c.a."},
	{"10.91Z", "Fabrication d'aliments pour animaux de ferme"},
	{"11.01Z", "Production de boissons alcooliques distillées"},
	{"11.02A", "Fabrication de vins effervescents"},
	{"11.05Z", "Fabrication de bière"},
	{"11.07A", "Industrie des eaux de table"},
	{"13.10Z", "Préparation de fibres textiles et filature"},
	{"16.10A", "Sciage et rabotage du bois, hors imprégnation"},
	{"16.10B", "Imprégnation du bois"},
	{"16.21Z", "Fabrication de placage et de panneaux de bois"},
	{"17.11Z", "Fabrication de pâte à papier"},
	{"17.12Z", "Fabrication de papier et de carton"},
	{"17.21A", "Fabrication de carton ondulé"},
	{"17.21B", "Fabrication de cartonnages"},
	{"19.20Z", "Raffinage du pétrole"},
	{"20.11Z", "Fabrication de gaz industriels"},
	{"20.13B", "Fabrication d'autres produits chimiques inorganiques de base n.c.a."},
	{"20.14Z", "Fabrication d'autres produits chimiques organiques de base"},
	{"20.30Z", "Fabrication de peintures, vernis, encres et mastics"},
	{"20.41Z", "Fabrication de savons, détergents et produits d'entretien"},
	{"21.10Z", "Fabrication de produits pharmaceutiques de base"},
	{"21.20Z", "Fabrication de préparations pharmaceutiques"},
	{"22.21Z", "Fabrication de plaques, feuilles, tubes et profilés en matières plastiques"},
	{"22.22Z", "Fabrication d'emballages en matières plastiques"},
	{"22.29A", "Fabrication de pièces techniques à base de matières plastiques"},
	{"22.29B", "Fabrication de produits de consommation courante en matières plastiques"},
	{"23.13Z", "Fabrication de verre creux"},
	{"23.32Z", "Fabrication de briques, tuiles et produits de construction, en terre cuite"},
	{"23.51Z", "Fabrication de ciment"},
	{"23.61Z", "Fabrication d'éléments en béton pour la construction"},
	{"23.63Z", "Fabrication de béton prêt à l'emploi"},
	{"24.10Z", "Sidérurgie"},
	{"24.20Z", "Fabrication de tubes, tuyaux, profilés creux et accessoires correspondants en acier"},
	{"24.51Z", "Fonderie de fonte"},
	{"24.53Z", "Fonderie de métaux légers"},
	{"25.11Z", "Fabrication de structures métalliques et de parties de structures"},
	{"25.21Z", "Fabrication de radiateurs et de chaudières pour le chauffage central"},
	{"25.29Z", "Fabrication d'autres réservoirs, citernes et conteneurs métalliques"},
	{"25.50A", "Forge, estampage, matriçage ; métallurgie des poudres"},
	{"25.61Z", "Traitement et revêtement des métaux"},
	{"25.62A", "Décolletage"},
	{"25.62B", "Mécanique industrielle"},
	{"25.73A", "Fabrication de moules et modèles"},
	{"25.73B", "Fabrication d'autres outillages"},
	{"27.11Z", "Fabrication de moteurs, génératrices et transformateurs électriques"},
	{"28.11Z", "Fabrication de moteurs et turbines, à l'exception des moteurs d'avions et de véhicules"},
	{"28.21Z", "Fabrication de fours et brûleurs"},
	{"28.22Z", "Fabrication de matériel de levage et de manutention"},
	{"28.25Z", "Fabrication d'équipements aérauliques et frigorifiques industriels"},
	{"29.10Z", "Construction de véhicules automobiles"},
	{"29.20Z", "Fabrication de carrosseries et remorques"},
	{"29.32Z", "Fabrication d'autres équipements automobiles"},
	{"30.30Z", "Construction aéronautique et spatiale"},
	{"31.01Z", "Fabrication de meubles de bureau et de magasin"},
	{"31.09A", "Fabrication de sièges d'ameublement d'intérieur"},
	{"32.50A", "Fabrication de matériel médico-chirurgical et dentaire"},
	{"33.11Z", "Réparation d'ouvrages en métaux"},
	{"33.12Z", "Réparation de machines et équipements mécaniques"},
	{"33.20A", "Installation de structures métalliques, chaudronnées et de tuyauterie"},
	{"33.20B", "Installation de machines et équipements mécaniques"},
	{"35.11Z", "Production d'électricité"},
	{"35.22Z", "Distribution de combustibles gazeux par conduites"},
	{"35.30Z", "Production et distribution de vapeur et d'air conditionné"},
	{"36.00Z", "Captage, traitement et distribution d'eau"},
	{"37.00Z", "Collecte et traitement des eaux usées"},
	{"38.11Z", "Collecte des déchets non dangereux"},
	{"38.12Z", "Collecte des déchets dangereux"},
	{"38.21Z", "Traitement et élimination des déchets non dangereux"},
	{"38.22Z", "Traitement et élimination des déchets dangereux"},
	{"38.32Z", "Récupération de déchets triés"},
	{"41.20A", "Construction de maisons individuelles"},
	{"41.20B", "Construction d'autres bâtiments"},
	{"43.99C", "Travaux de maçonnerie générale et gros œuvre de bâtiment"},
	{"45.20A", "Entretien et réparation de véhicules automobiles légers"},
	{"45.20B", "Entretien et réparation d'autres véhicules automobiles"},
	{"46.21Z", "Commerce de gros de céréales, de tabac non manufacturé et d'aliments pour le bétail"},
	{"46.31Z", "Commerce de gros de fruits et légumes"},
	{"46.32A", "Commerce de gros de viandes de boucherie"},
	{"46.33Z", "Commerce de gros de produits laitiers, œufs, huiles et matières grasses comestibles"},
	{"46.34Z", "Commerce de gros de boissons"},
	{"46.38A", "Commerce de gros de poissons, crustacés et mollusques"},
	{"46.39A", "Commerce de gros de produits surgelés"},
	{"46.39B", "Commerce de gros alimentaire non spécialisé"},
	{"46.69B", "Commerce de gros de fournitures et équipements industriels divers"},
	{"46.71Z", "Commerce de gros de combustibles et de produits annexes"},
	{"46.73A", "Commerce de gros de bois et de matériaux de construction"},
	{"46.75Z", "Commerce de gros de produits chimiques"},
	{"46.77Z", "Commerce de gros de déchets et débris"},
	{"46.90Z", "Commerce de gros non spécialisé"},
	{"47.11A", "Commerce de détail de produits surgelés"},
	{"47.11B", "Commerce d'alimentation générale"},
	{"47.11C", "Supérettes"},
	{"47.11D", "Supermarchés"},
	{"47.11E", "Magasins multi-commerces"},
	{"47.11F", "Hypermarchés"},
	{"47.19A", "Grands magasins"},
	{"47.19B", "Autres commerces de détail en magasin non spécialisé"},
	{"49.20Z", "Transports ferroviaires de fret"},
	{"49.41A", "Transports routiers de fret interurbains"},
	{"49.41B", "Transports routiers de fret de proximité"},
	{"50.20Z", "Transports maritimes et côtiers de fret"},
	{"52.10A", "Entreposage et stockage frigorifique"},
	{"52.10B", "Entreposage et stockage non frigorifique"},
	{"52.22Z", "Services auxiliaires des transports par eau"},
	{"52.23Z", "Services auxiliaires des transports aériens"},
	{"52.24A", "Manutention portuaire"},
	{"52.24B", "Manutention non portuaire"},
	{"52.29A", "Messagerie, fret express"},
	{"52.29B", "Affrètement et organisation des transports"},
	{"55.10Z", "Hôtels et hébergement similaire"},
	{"56.10A", "Restauration traditionnelle"},
	{"56.29A", "Restauration collective sous contrat"},
	{"68.20A", "Location de logements"},
	{"68.20B", "Location de terrains et d'autres biens immobiliers"},
	{"71.12B", "Ingénierie, études techniques"},
	{"77.12Z", "Location et location-bail de camions"},
	{"81.10Z", "Activités combinées de soutien lié aux bâtiments"},
	{"82.92Z", "Activités de conditionnement"},
	{"86.10Z", "Activités hospitalières"},
	{"87.10A", "Hébergement médicalisé pour personnes âgées"},
	{"93.11Z", "Gestion d'installations sportives"},
}

// All returns the full registry in published order.
func All() []Code {
	return registry
}

// Lookup returns the registry entry for a canonical code.
func Lookup(id string) (Code, bool) {
	for _, code := range registry {
		if code.ID == id {
			return code, true
		}
	}
	return Code{}, false
}
