package translate

import "strings"

// greekAliases is the regex fallback's bilingual alias table:
// normalized Greek/English terms to their canonical
// taxonomy id, keyed by the already-accent-folded, lowercased form the
// regex fallback matches substrings against. Not exhaustive — the LLM
// path is primary; this is the degraded-mode extraction table.
var greekAliases = map[string]string{
	// Roles
	"διευθυνων συμβουλος": "ROLE_CEO", "ceo": "ROLE_CEO", "γενικος διευθυντης": "ROLE_CEO",
	"διευθυντης": "ROLE_DIRECTOR", "director": "ROLE_DIRECTOR",
	"προισταμενος": "ROLE_MANAGER", "manager": "ROLE_MANAGER", "διαχειριστης": "ROLE_MANAGER",
	"team lead": "ROLE_TEAM_LEAD", "αρχιομαδαρχης": "ROLE_TEAM_LEAD",
	"επιβλεπων": "ROLE_SUPERVISOR", "supervisor": "ROLE_SUPERVISOR", "επιτηρητης": "ROLE_SUPERVISOR",
	"οικονομικος διευθυντης": "ROLE_CFO", "cfo": "ROLE_CFO",
	"προισταμενος λογιστηριου": "ROLE_ACCOUNTING_MANAGER", "accounting manager": "ROLE_ACCOUNTING_MANAGER",
	"υπευθυνος λογιστης": "ROLE_SENIOR_ACCOUNTANT", "senior accountant": "ROLE_SENIOR_ACCOUNTANT",
	"λογιστης": "ROLE_ACCOUNTANT", "accountant": "ROLE_ACCOUNTANT",
	"βοηθος λογιστη": "ROLE_JUNIOR_ACCOUNTANT", "junior accountant": "ROLE_JUNIOR_ACCOUNTANT",
	"μισθοδοτης": "ROLE_PAYROLL_SPECIALIST", "payroll": "ROLE_PAYROLL_SPECIALIST",
	"διευθυντης πωλησεων": "ROLE_SALES_DIRECTOR", "sales director": "ROLE_SALES_DIRECTOR",
	"υπευθυνος καταστηματος": "ROLE_STORE_MANAGER", "store manager": "ROLE_STORE_MANAGER",
	"πωλητης": "ROLE_SALES_REPRESENTATIVE", "sales representative": "ROLE_SALES_REPRESENTATIVE",
	"ταμιας": "ROLE_CASHIER", "cashier": "ROLE_CASHIER",
	"αποθηκαριος": "ROLE_WAREHOUSE", "warehouse": "ROLE_WAREHOUSE",
	"διευθυντης ανθρωπινου δυναμικου": "ROLE_HR_DIRECTOR", "hr director": "ROLE_HR_DIRECTOR",
	"υπευθυνος προσωπικου": "ROLE_HR_MANAGER", "hr manager": "ROLE_HR_MANAGER",
	"στελεχος ανθρωπινου δυναμικου": "ROLE_HR_SPECIALIST", "hr specialist": "ROLE_HR_SPECIALIST",
	"γραμματεας": "ROLE_SECRETARY", "secretary": "ROLE_SECRETARY",
	"βοηθος διοικησης": "ROLE_ADMIN_ASSISTANT", "admin assistant": "ROLE_ADMIN_ASSISTANT",
	"υπευθυνος γραφειου": "ROLE_OFFICE_MANAGER", "office manager": "ROLE_OFFICE_MANAGER",
	"μηχανικος": "ROLE_ENGINEER", "engineer": "ROLE_ENGINEER",
	"ηλεκτρολογος": "ROLE_ELECTRICIAN", "electrician": "ROLE_ELECTRICIAN",
	"τεχνικος": "ROLE_TECHNICIAN", "technician": "ROLE_TECHNICIAN",
	"χειριστης": "ROLE_OPERATOR", "operator": "ROLE_OPERATOR",
	"οδηγος": "ROLE_DRIVER", "driver": "ROLE_DRIVER",
	"μαγειρας": "ROLE_COOK", "cook": "ROLE_COOK",
	"σερβιτορος": "ROLE_WAITER", "waiter": "ROLE_WAITER",
	"καθαριστρια": "ROLE_CLEANER", "cleaner": "ROLE_CLEANER",
	"φυλακας": "ROLE_SECURITY", "security": "ROLE_SECURITY",

	// Software
	"sap": "SW_SAP", "σαπ": "SW_SAP",
	"softone": "SW_SOFTONE", "σοφτ ον": "SW_SOFTONE",
	"pylon": "SW_PYLON",
	"entersoft": "SW_ENTERSOFT",
	"singular": "SW_SINGULAR",
	"atlantis": "SW_ATLANTIS",
	"odoo": "SW_ODOO",
	"erp": "SW_ERP",
	"excel": "SW_EXCEL", "pivot tables": "SW_EXCEL", "vlookup": "SW_EXCEL", "macros": "SW_EXCEL",
	"word": "SW_WORD",
	"access": "SW_ACCESS",
	"office": "SW_OFFICE",
	"google workspace": "SW_GOOGLE", "google sheets": "SW_GOOGLE",
	"autocad": "SW_AUTOCAD",
	"solidworks": "SW_SOLIDWORKS",
	"photoshop": "SW_PHOTOSHOP",
	"crm": "SW_CRM",
	"salesforce": "SW_SALESFORCE",
	"oracle": "SW_ORACLE", "netsuite": "SW_ORACLE",

	// Skills
	"mydata": "SKILL_MYDATA",
	"εργανη": "SKILL_ERGANI",
	"φπα": "SKILL_VAT", "vies": "SKILL_VAT", "intrastat": "SKILL_VAT",
	"μισθοδοσια": "SKILL_PAYROLL", "απδ": "SKILL_PAYROLL", "εφκα": "SKILL_PAYROLL",
	"βιβλια β κατηγοριας": "SKILL_BOOKS_B_CLASS",
	"βιβλια γ κατηγοριας": "SKILL_BOOKS_G_CLASS",
	"τιμολογηση": "SKILL_INVOICING", "invoicing": "SKILL_INVOICING",
	"τραπεζικες συμφωνιες": "SKILL_BANK_RECONCILIATION", "bank reconciliation": "SKILL_BANK_RECONCILIATION",
	"εισπρακτεοι πληρωτεοι": "SKILL_RECEIVABLES_PAYABLES",
	"φορολογικες δηλωσεις": "SKILL_TAX_DECLARATIONS",
	"πωλησεις": "SKILL_SALES", "sales": "SKILL_SALES",
	"εξυπηρετηση πελατων": "SKILL_CUSTOMER_SERVICE", "customer service": "SKILL_CUSTOMER_SERVICE",
	"b2b": "SKILL_B2B_SALES",
	"b2c": "SKILL_B2C_SALES",
	"διαχειριση αποθεματος": "SKILL_INVENTORY_MANAGEMENT", "inventory management": "SKILL_INVENTORY_MANAGEMENT",
	"ταμειακη μηχανη": "SKILL_CASH_REGISTER",
	"διαχειριση ομαδας": "SKILL_TEAM_MANAGEMENT", "team management": "SKILL_TEAM_MANAGEMENT",
	"ηγεσια": "SKILL_LEADERSHIP", "leadership": "SKILL_LEADERSHIP",
	"προγραμματισμος βαρδιων": "SKILL_SCHEDULING",
	"διοικητικη υποστηριξη": "SKILL_OFFICE_ADMIN",
	"συγκολληση": "SKILL_WELDING", "welding": "SKILL_WELDING", "tig": "SKILL_WELDING", "mig": "SKILL_WELDING",
	"cnc": "SKILL_CNC",
	"τορνος": "SKILL_LATHE", "lathe": "SKILL_LATHE",
	"φρεζα": "SKILL_MILLING", "milling": "SKILL_MILLING",
	"plc": "SKILL_PLC", "siemens": "SKILL_PLC", "allen bradley": "SKILL_PLC",
	"επικοινωνια": "SKILL_COMMUNICATION", "communication": "SKILL_COMMUNICATION",
	"οργανωση": "SKILL_ORGANIZATION", "organization": "SKILL_ORGANIZATION",
	"διαχειριση χρονου": "SKILL_TIME_MANAGEMENT", "time management": "SKILL_TIME_MANAGEMENT",

	// Education levels
	"λυκειο": "EDU_LYCEUM", "lyceum": "EDU_LYCEUM",
	"ιεκ": "EDU_IEK", "iek": "EDU_IEK",
	"τει": "EDU_TEI", "tei": "EDU_TEI",
	"πτυχιο": "EDU_BACHELOR", "bachelor": "EDU_BACHELOR",
	"μεταπτυχιακο": "EDU_MASTER", "master": "EDU_MASTER",
	"διδακτορικο": "EDU_DOCTORATE", "doctorate": "EDU_DOCTORATE",

	// Driving licenses
	"διπλωμα οδηγησης": "LICENSE_B", "αδεια οδηγησης": "LICENSE_B",
	"κλαρκ": "LICENSE_FORKLIFT", "περονοφορο": "LICENSE_FORKLIFT", "forklift": "LICENSE_FORKLIFT",
	"γερανος": "LICENSE_CRANE", "crane": "LICENSE_CRANE",

	// Languages
	"ελληνικα": "LANG_EL", "greek": "LANG_EL",
	"αγγλικα": "LANG_EN", "english": "LANG_EN",
	"γερμανικα": "LANG_DE", "german": "LANG_DE",
	"γαλλικα": "LANG_FR", "french": "LANG_FR",
	"ισπανικα": "LANG_ES", "spanish": "LANG_ES",
	"ιταλικα": "LANG_IT", "italian": "LANG_IT",
	"ρωσικα": "LANG_RU", "russian": "LANG_RU",
	"βουλγαρικα": "LANG_BG", "bulgarian": "LANG_BG",
	"αλβανικα": "LANG_SQ", "albanian": "LANG_SQ",

	// Certifications
	"iso": "CERT_ISO", "iso 9001": "CERT_ISO_9001", "iso 14001": "CERT_ISO_14001", "iso 22000": "CERT_ISO_22000",
	"haccp": "CERT_HACCP",
	"gdpr": "CERT_GDPR",
	"υγιεινη και ασφαλεια": "CERT_SAFETY", "safety": "CERT_SAFETY",
	"πρωτες βοηθειες": "CERT_FIRST_AID", "first aid": "CERT_FIRST_AID",
	"ecdl": "CERT_ECDL",
}

// locationAliases maps unaccented Greek city spellings
// to their properly accented canonical form, so a user typing without
// tonos still gets a correct location filter value.
var locationAliases = map[string]string{
	"αθηνα": "Αθήνα", "αθηναι": "Αθήνα",
	"θεσσαλονικη": "Θεσσαλονίκη",
	"πατρα": "Πάτρα",
	"ηρακλειο": "Ηράκλειο",
	"λαρισα": "Λάρισα",
	"βολος": "Βόλος",
	"ιωαννινα": "Ιωάννινα",
	"χανια": "Χανιά",
	"αλεξανδρουπολη": "Αλεξανδρούπολη",
	"καβαλα": "Καβάλα",
	"κομοτηνη": "Κομοτηνή",
	"σερρες": "Σέρρες",
	"δραμα": "Δράμα",
	"ξανθη": "Ξάνθη",
	"κοζανη": "Κοζάνη",
	"τρικαλα": "Τρίκαλα",
	"καρδιτσα": "Καρδίτσα",
	"χαλκιδα": "Χαλκίδα",
	"λαμια": "Λαμία",
	"αλμυρος": "Αλμυρός",
}

// normalizeGreek strips Greek tonos/dialytika accents by direct character
// substitution. Distinct from
// taxonomy.Normalize's NFD-based fold: this one is deliberately
// Greek-only and cheap, since the fallback parser runs inline on every
// query, not just CV terms.
func normalizeGreek(text string) string {
	replacer := strings.NewReplacer(
		"ά", "α", "έ", "ε", "ή", "η", "ί", "ι", "ό", "ο", "ύ", "υ", "ώ", "ω",
		"ϊ", "ι", "ϋ", "υ", "ΐ", "ι", "ΰ", "υ",
		"Ά", "Α", "Έ", "Ε", "Ή", "Η", "Ί", "Ι", "Ό", "Ο", "Ύ", "Υ", "Ώ", "Ω",
	)
	return replacer.Replace(text)
}
